package router

import (
	"fmt"

	"github.com/gdex-tools/datahelp-router/internal/dataset"
)

// Outcome is the terminal state of one ticket in a routing pass.
type Outcome string

const (
	OutcomeRouted        Outcome = "routed"
	OutcomeNoID          Outcome = "skipped_no_id"
	OutcomeNoOwner       Outcome = "skipped_no_owner"
	OutcomeAlreadyRouted Outcome = "skipped_already_routed"
	OutcomeManual        Outcome = "manual"
	OutcomeFailed        Outcome = "failed"
)

// Decision records what happened to one ticket.
type Decision struct {
	TicketKey     string
	AlreadyRouted bool
	Dataset       dataset.ID
	Owner         string // directory contact for Dataset
	Assignee      string // who received (or in a dry run would receive) the ticket
	Fallback      bool   // Assignee was drawn from the fallback pool
	Outcome       Outcome
	Reason        string // failure detail for OutcomeFailed
}

// Report summarises one routing pass over a queue.
type Report struct {
	Queue  Queue
	RunID  string
	DryRun bool

	Fetched              int
	Routed               int
	SkippedNoID          int
	SkippedNoOwner       int
	SkippedAlreadyRouted int
	Manual               int
	Failed               int

	Decisions []Decision // in tracker order
}

func newReport(q Queue, runID string, dryRun bool, decisions []Decision) Report {
	r := Report{
		Queue:     q,
		RunID:     runID,
		DryRun:    dryRun,
		Fetched:   len(decisions),
		Decisions: decisions,
	}
	for _, d := range decisions {
		switch d.Outcome {
		case OutcomeRouted:
			r.Routed++
		case OutcomeNoID:
			r.SkippedNoID++
		case OutcomeNoOwner:
			r.SkippedNoOwner++
		case OutcomeAlreadyRouted:
			r.SkippedAlreadyRouted++
		case OutcomeManual:
			r.Manual++
		case OutcomeFailed:
			r.Failed++
		}
	}
	return r
}

// Watermark returns the key of the last ticket before the first failure.
// Everything up to and including it reached a final decision, so a later
// pass may start after it without losing retryable tickets.
func (r Report) Watermark() string {
	last := ""
	for _, d := range r.Decisions {
		if d.Outcome == OutcomeFailed {
			break
		}
		last = d.TicketKey
	}
	return last
}

func (r Report) String() string {
	return fmt.Sprintf("%s queue: fetched %d, routed %d, no id %d, no owner %d, already routed %d, manual %d, failed %d",
		r.Queue, r.Fetched, r.Routed, r.SkippedNoID, r.SkippedNoOwner, r.SkippedAlreadyRouted, r.Manual, r.Failed)
}
