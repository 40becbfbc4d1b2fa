package scheduler

import (
	"time"

	"github.com/vk/pipegrid/internal/dag"
)

// State is the lifecycle position of one job instance.
type State int

const (
	// Blocked: at least one prerequisite has not reached a terminal state.
	Blocked State = iota
	// Pending: unblocked and waiting in the ready queue for capacity.
	Pending
	// Running: leaf steps are executing. Never preempted.
	Running
	// Succeeded: all executed steps completed without error.
	Succeeded
	// Failed: a step errored. Tolerated or not is recorded separately.
	Failed
	// Skipped: the job-level predicate evaluated false. Satisfies needs.
	Skipped
	// Cancelled: a non-tolerated upstream failure ruled the instance out
	// before it ever ran.
	Cancelled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Blocked:
		return "blocked"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	switch s {
	case Succeeded, Failed, Skipped, Cancelled:
		return true
	default:
		return false
	}
}

// Record is the per-instance execution record. The scheduler loop is the
// single writer; everything else reads it after the run completes.
type Record struct {
	Node       *dag.Node
	State      State
	Tolerated  bool
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time the instance spent running, zero when it
// never ran.
func (r *Record) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
