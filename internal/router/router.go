// Package router drains help-desk team queues and assigns each ticket to the
// owner of the dataset it mentions.
//
// Every ticket moves through the same pipeline: changelog check, dataset
// extraction, owner lookup, assignment, internal note. A ticket stops at the
// first step that cannot complete and the pass moves on; no single ticket can
// abort a pass.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gdex-tools/datahelp-router/internal/dataset"
	"github.com/gdex-tools/datahelp-router/internal/history"
	"github.com/gdex-tools/datahelp-router/internal/metrics"
	"github.com/gdex-tools/datahelp-router/internal/ticket"
)

// QueuePageSize is the most tickets fetched from a queue in one pass.
const QueuePageSize = 50

var (
	// ErrNilTracker is returned when no tracker client is supplied.
	ErrNilTracker = errors.New("router: nil tracker")
	// ErrQueueIdentity means a team-queue identity is blank or both queues share one.
	ErrQueueIdentity = errors.New("team queues need two distinct identities")
	// ErrEmptyFallbackPool means the catch-all owner matched but no pool member exists.
	ErrEmptyFallbackPool = errors.New("fallback pool is empty")
)

// Tracker is the issue-tracker surface the router needs.
type Tracker interface {
	history.ChangelogSource
	SearchUnresolved(ctx context.Context, f ticket.QueueFilter, limit int) ([]ticket.Ticket, error)
	SetAssignee(ctx context.Context, key, email string) error
	AddComment(ctx context.Context, key, text string, vis ticket.Visibility) error
}

// Resolver maps a dataset to its owner's email address.
type Resolver interface {
	Resolve(ctx context.Context, id dataset.ID) (owner string, ok bool, err error)
}

// Picker chooses an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(n int) int

// IntN calls f(n).
func (f PickerFunc) IntN(n int) int { return f(n) }

// Options are the fixed routing rules of a Router.
type Options struct {
	Project         string
	ServiceQueue    string // team-queue identity of the service group
	CurationQueue   string // team-queue identity of the curation group
	ServiceDeskRole string // project role that can read internal notes

	CatchAll          string   // directory contact that must never receive tickets
	FallbackPool      []string // assignees used instead of CatchAll
	EscalationContact string   // human named in every note

	// AfterKey, when set, restricts the service queue to keys after it.
	AfterKey string

	// Workers > 1 processes tickets concurrently, one goroutine per ticket,
	// at most Workers at a time.
	Workers int

	// DryRun decides every ticket but makes no assignment or comment.
	DryRun bool
}

// Router routes queued tickets to dataset owners.
type Router struct {
	dir  Resolver
	pick Picker
	opts Options
	log  *zap.Logger
}

// New creates a Router. A nil picker draws from the global math/rand/v2 source.
func New(dir Resolver, pick Picker, opts Options, log *zap.Logger) *Router {
	if pick == nil {
		pick = PickerFunc(rand.IntN)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{dir: dir, pick: pick, opts: opts, log: log.Named("router")}
}

// Run drains the service queue and then the curation queue. A failed queue
// search does not stop the next queue; its error is returned after both
// passes.
func (r *Router) Run(ctx context.Context, tr Tracker) ([]Report, error) {
	var (
		reports []Report
		errs    []error
	)
	for _, q := range Queues {
		rep, err := r.RouteQueue(ctx, tr, q)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

// Filter returns the tracker search for a queue.
func (r *Router) Filter(q Queue) (ticket.QueueFilter, error) {
	service, curation := strings.TrimSpace(r.opts.ServiceQueue), strings.TrimSpace(r.opts.CurationQueue)
	if service == "" || curation == "" || strings.EqualFold(service, curation) {
		return ticket.QueueFilter{}, fmt.Errorf("%w: service %q, curation %q", ErrQueueIdentity, r.opts.ServiceQueue, r.opts.CurationQueue)
	}
	switch q {
	case QueueService:
		return ticket.QueueFilter{Project: r.opts.Project, Assignee: r.opts.ServiceQueue, AfterKey: r.opts.AfterKey}, nil
	case QueueCuration:
		return ticket.QueueFilter{Project: r.opts.Project, Assignee: r.opts.CurationQueue}, nil
	default:
		return ticket.QueueFilter{}, fmt.Errorf("%w: %s", ErrUnknownQueue, q)
	}
}

// RouteQueue runs one pass over q. The only error is a failed queue search
// or an invalid argument; per-ticket failures are counted in the report.
func (r *Router) RouteQueue(ctx context.Context, tr Tracker, q Queue) (Report, error) {
	if tr == nil {
		return Report{}, ErrNilTracker
	}
	filter, err := r.Filter(q)
	if err != nil {
		return Report{}, err
	}

	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID), zap.Stringer("queue", q))

	tickets, err := tr.SearchUnresolved(ctx, filter, QueuePageSize)
	if err != nil {
		metrics.PassesTotal.WithLabelValues(q.String(), "error").Inc()
		log.Error("queue search failed", zap.Error(err))
		return Report{}, fmt.Errorf("fetching %s queue: %w", q, err)
	}
	tickets = dedupe(tickets)
	log.Info("queue fetched", zap.Int("tickets", len(tickets)))

	decisions := make([]Decision, len(tickets))
	if r.opts.Workers == 1 {
		for i, t := range tickets {
			decisions[i] = r.process(ctx, tr, q, t, log)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Workers)
		for i, t := range tickets {
			g.Go(func() error {
				decisions[i] = r.process(ctx, tr, q, t, log)
				return nil
			})
		}
		_ = g.Wait()
	}

	rep := newReport(q, runID, r.opts.DryRun, decisions)
	if !r.opts.DryRun {
		for _, d := range decisions {
			metrics.TicketsTotal.WithLabelValues(q.String(), string(d.Outcome)).Inc()
		}
	}
	metrics.PassesTotal.WithLabelValues(q.String(), "ok").Inc()
	log.Info("queue pass complete",
		zap.Int("routed", rep.Routed),
		zap.Int("skipped_no_id", rep.SkippedNoID),
		zap.Int("skipped_no_owner", rep.SkippedNoOwner),
		zap.Int("skipped_already_routed", rep.SkippedAlreadyRouted),
		zap.Int("manual", rep.Manual),
		zap.Int("failed", rep.Failed),
		zap.Bool("dry_run", r.opts.DryRun))
	return rep, nil
}

// dedupe drops repeated keys so no ticket is handled twice in one pass.
func dedupe(tickets []ticket.Ticket) []ticket.Ticket {
	seen := make(map[string]bool, len(tickets))
	out := tickets[:0:0]
	for _, t := range tickets {
		if seen[t.Key] {
			continue
		}
		seen[t.Key] = true
		out = append(out, t)
	}
	return out
}

func (r *Router) identities() []string {
	return []string{r.opts.ServiceQueue, r.opts.CurationQueue}
}

func (r *Router) process(ctx context.Context, tr Tracker, q Queue, t ticket.Ticket, log *zap.Logger) Decision {
	d := Decision{TicketKey: t.Key}
	log = log.With(zap.String("ticket", t.Key))

	routed, err := history.WasRoutedBefore(ctx, tr, t.Key, r.identities())
	if err != nil {
		log.Warn("assignment history unknown, skipping", zap.Error(err))
		return failed(d, err)
	}
	if routed {
		log.Info("ticket already cycled through a team queue, skipping")
		d.AlreadyRouted = true
		d.Outcome = OutcomeAlreadyRouted
		return d
	}

	if q == QueueCuration {
		log.Debug("curation ticket left for manual assignment")
		d.Outcome = OutcomeManual
		return d
	}

	id, ok := dataset.Extract(t.TextFields())
	if !ok {
		log.Debug("no dataset identifier found")
		d.Outcome = OutcomeNoID
		return d
	}
	d.Dataset = id
	log = log.With(zap.Stringer("dataset", id))

	owner, ok, err := r.dir.Resolve(ctx, id)
	if err != nil {
		log.Error("owner lookup rejected dataset id", zap.Error(err))
		return failed(d, err)
	}
	if !ok {
		log.Info("no owner for dataset, skipping")
		d.Outcome = OutcomeNoOwner
		return d
	}
	d.Owner = owner

	assignee, note, err := r.plan(id, owner)
	if err != nil {
		log.Error("cannot choose assignee", zap.String("owner", owner), zap.Error(err))
		return failed(d, err)
	}
	d.Assignee = assignee
	d.Fallback = !strings.EqualFold(assignee, owner)
	log = log.With(zap.String("assignee", assignee), zap.Bool("fallback", d.Fallback))

	if r.opts.DryRun {
		log.Info("dry run: would assign")
		d.Outcome = OutcomeRouted
		return d
	}

	if err := tr.SetAssignee(ctx, t.Key, assignee); err != nil {
		log.Error("assignment failed", zap.Error(err))
		return failed(d, err)
	}
	if err := tr.AddComment(ctx, t.Key, note, ticket.Role(r.opts.ServiceDeskRole)); err != nil {
		log.Error("ticket assigned but internal note failed", zap.Error(err))
		return failed(d, err)
	}
	if d.Fallback {
		metrics.FallbackAssignmentsTotal.Inc()
	}

	log.Info("ticket routed")
	d.Outcome = OutcomeRouted
	return d
}

// plan picks the assignee for an owner and the note explaining it. The
// catch-all address is swapped for a random fallback pool member.
func (r *Router) plan(id dataset.ID, owner string) (assignee, note string, err error) {
	if r.opts.CatchAll == "" || !strings.EqualFold(owner, r.opts.CatchAll) {
		return owner, ownerNote(id, owner, r.opts.EscalationContact), nil
	}
	if len(r.opts.FallbackPool) == 0 {
		return "", "", ErrEmptyFallbackPool
	}
	assignee = r.opts.FallbackPool[r.pick.IntN(len(r.opts.FallbackPool))]
	return assignee, fallbackNote(id, r.opts.CatchAll, assignee, r.opts.EscalationContact), nil
}

func failed(d Decision, err error) Decision {
	d.Outcome = OutcomeFailed
	d.Reason = err.Error()
	return d
}
