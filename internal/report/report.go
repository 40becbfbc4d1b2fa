package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vk/pipegrid/internal/artifact"
	"github.com/vk/pipegrid/internal/dag"
	"github.com/vk/pipegrid/internal/scheduler"
)

// Verdict is the aggregate outcome of one run.
type Verdict int

const (
	// Success: no instance failed without tolerance.
	Success Verdict = iota
	// Failure: at least one non-tolerated failure exists.
	Failure
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	if v == Failure {
		return "failure"
	}
	return "success"
}

// Report folds the execution records of one run into the user-visible
// result: a per-instance breakdown in graph order, the published
// artifacts, and the aggregate verdict.
type Report struct {
	RunID     uuid.UUID
	Pipeline  string
	Records   []*scheduler.Record
	Artifacts []artifact.Info
}

// Build assembles the report, ordering records by the graph's
// deterministic node order.
func Build(runID uuid.UUID, pipeline string, graph *dag.Graph, records map[string]*scheduler.Record, artifacts []artifact.Info) *Report {
	ordered := make([]*scheduler.Record, 0, len(graph.Order))
	for _, node := range graph.Order {
		if rec, ok := records[node.ID]; ok {
			ordered = append(ordered, rec)
		}
	}
	return &Report{
		RunID:     runID,
		Pipeline:  pipeline,
		Records:   ordered,
		Artifacts: artifacts,
	}
}

// Verdict is Failure iff at least one instance failed without tolerance.
// Skipped, Cancelled and tolerated-failed instances never flip it.
func (r *Report) Verdict() Verdict {
	for _, rec := range r.Records {
		if rec.State == scheduler.Failed && !rec.Tolerated {
			return Failure
		}
	}
	return Success
}

// FailedInstances returns the IDs of the instances that caused the
// failure verdict, i.e. failed without tolerance.
func (r *Report) FailedInstances() []string {
	var out []string
	for _, rec := range r.Records {
		if rec.State == scheduler.Failed && !rec.Tolerated {
			out = append(out, rec.Node.ID)
		}
	}
	return out
}

// Render writes the human-readable breakdown.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintf(w, "pipeline %q run %s\n", r.Pipeline, r.RunID)
	for _, rec := range r.Records {
		line := fmt.Sprintf("  %-10s %s", rec.State, rec.Node.ID)
		if d := rec.Duration(); d > 0 {
			line += fmt.Sprintf(" (%s)", d.Round(time.Millisecond))
		}
		if rec.Tolerated {
			line += " [tolerated]"
		}
		if rec.Node.Instance.Experimental {
			line += " [experimental]"
		}
		if rec.Err != nil {
			line += fmt.Sprintf(": %v", rec.Err)
		}
		fmt.Fprintln(w, line)
	}
	if len(r.Artifacts) > 0 {
		fmt.Fprintln(w, "artifacts:")
		for _, info := range r.Artifacts {
			fmt.Fprintf(w, "  %s (%d bytes) from %s\n", info.Name, info.Size, info.Producer)
		}
	}
	fmt.Fprintf(w, "verdict: %s\n", r.Verdict())
}
