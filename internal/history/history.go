// Package history decides from a ticket's changelog whether it has already
// cycled through a team queue.
package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gdex-tools/datahelp-router/internal/ticket"
)

// ErrHistoryUnknown is returned when the changelog could not be fetched or
// could not be trusted. Callers must skip the ticket rather than assume it
// was never routed.
var ErrHistoryUnknown = errors.New("assignment history unknown")

// ChangelogSource fetches a ticket's full change history.
type ChangelogSource interface {
	GetChangelog(ctx context.Context, key string) ([]ticket.ChangeEvent, error)
}

// Tally counts, per team-queue identity, how many times a ticket was
// assigned to that identity.
type Tally map[string]int

// Max returns the highest count in the tally.
func (t Tally) Max() int {
	highest := 0
	for _, n := range t {
		highest = max(highest, n)
	}
	return highest
}

// Count tallies assignments to each identity. Identities match the new
// assignee's id or display value, case-insensitively.
//
// Empty identities are ignored, since an unassignment has an empty new value.
// Identities differing only in case count as one.
func Count(events []ticket.ChangeEvent, identities []string) (Tally, error) {
	identities = distinct(identities)
	tally := make(Tally, len(identities))
	for _, id := range identities {
		tally[id] = 0
	}

	for _, ev := range events {
		if len(ev.Items) == 0 {
			return nil, fmt.Errorf("%w: changelog entry %q has no items", ErrHistoryUnknown, ev.ID)
		}
		for _, item := range ev.Items {
			if !item.IsAssignee() {
				continue
			}
			for _, id := range identities {
				if strings.EqualFold(item.To, id) || strings.EqualFold(item.ToString, id) {
					tally[id]++
				}
			}
		}
	}
	return tally, nil
}

// WasRoutedBefore reports whether the ticket was assigned to any of the
// team-queue identities more than once. A single arrival is the normal first
// pass and is not a loop.
func WasRoutedBefore(ctx context.Context, src ChangelogSource, key string, identities []string) (bool, error) {
	tally, err := Check(ctx, src, key, identities)
	if err != nil {
		return false, err
	}
	return tally.Max() > 1, nil
}

// Check fetches the changelog and returns the per-identity tally.
func Check(ctx context.Context, src ChangelogSource, key string, identities []string) (Tally, error) {
	events, err := src.GetChangelog(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrHistoryUnknown, key, err)
	}
	tally, err := Count(events, identities)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return tally, nil
}

func distinct(identities []string) []string {
	out := make([]string, 0, len(identities))
	for _, id := range identities {
		id = strings.TrimSpace(id)
		if id == "" || slices.ContainsFunc(out, func(seen string) bool { return strings.EqualFold(seen, id) }) {
			continue
		}
		out = append(out, id)
	}
	return out
}
