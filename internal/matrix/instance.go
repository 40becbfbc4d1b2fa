package matrix

import (
	"fmt"

	"github.com/vk/pipegrid/internal/predicate"
)

// Instance is one concrete, schedulable unit: a job template bound to one
// matrix combination (or to the empty combination when the template has no
// matrix). Identity is (template ID, combination key).
type Instance struct {
	// TemplateID is the declaring template's ID.
	TemplateID string

	// TemplateIndex is the template's declaration position, the first
	// scheduler tie-break key.
	TemplateIndex int

	// Combination is the bound axis-value mapping.
	Combination *Combination

	// Steps are the template's steps with all expressions evaluated against
	// this combination.
	Steps []*BoundStep

	// When is the inherited job-level predicate.
	When predicate.Node

	// Experimental marks the instance for reporting; it also implies
	// ContinueOnError.
	Experimental bool

	// ContinueOnError tolerates this instance's failure: recorded as failed
	// but dependents are not cancelled on its account.
	ContinueOnError bool

	// FailFast carries the matrix-level flag so the scheduler can cancel
	// waiting siblings when this instance fails without tolerance.
	FailFast bool
}

// ID renders the canonical instance identifier: "job.<template>" for
// unexpanded templates, "job.<template>[<combination key>]" otherwise.
func (i *Instance) ID() string {
	if i.Combination.Empty() {
		return fmt.Sprintf("job.%s", i.TemplateID)
	}
	return fmt.Sprintf("job.%s[%s]", i.TemplateID, i.Combination.Key())
}

// BoundStep is a StepSpec with every expression evaluated against the
// instance's combination and run context. Exactly one of Run or Uses is set.
type BoundStep struct {
	Name string
	Run  string
	Uses string
	With map[string]string
	When predicate.Node
}
