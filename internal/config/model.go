package config

import (
	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/pipegrid/internal/predicate"
	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of one pipeline
// document. Loaders for concrete formats (HCL, YAML) translate into this
// model; everything downstream of loading consumes only the model.
type Model struct {
	// Name identifies the pipeline in reports. Loaders default it to the
	// document's file stem when the document does not name itself.
	Name string

	// Jobs holds the job templates in declaration order. Declaration order
	// is meaningful: it is the first scheduler tie-break key.
	Jobs []*JobTemplate

	byID map[string]*JobTemplate
}

// JobTemplate is the declared unit of work before matrix expansion.
type JobTemplate struct {
	// ID is the unique job identifier referenced by `needs`.
	ID string

	// Index is the template's position in declaration order. Set by Validate.
	Index int

	// Needs lists the prerequisite template IDs.
	Needs []string

	// Matrix is the optional fan-out specification.
	Matrix *MatrixSpec

	// When is the optional job-level run predicate. A nil predicate always runs.
	When predicate.Node

	// ContinueOnError marks every instance of this template as tolerated on
	// failure: the failure is reported but never cancels dependents.
	ContinueOnError bool

	// Steps holds the leaf actions in execution order.
	Steps []*StepSpec
}

// MatrixSpec declares the fan-out axes for a template.
type MatrixSpec struct {
	// Axes in declaration order. The Cartesian product over their values,
	// in this order, generates the base instance set.
	Axes []Axis

	// Include holds extra concrete combinations merged in after the
	// product. An include that duplicates a product combination only
	// contributes its side attributes; one that does not adds an instance,
	// even if its values fall outside every declared axis domain.
	Include []IncludeEntry

	// FailFast, when set, cancels still-waiting sibling instances of the
	// same template as soon as one instance fails without tolerance.
	// Loaders default it to true.
	FailFast bool
}

// Axis is one named matrix dimension.
type Axis struct {
	Name   string
	Values []cty.Value
}

// IncludeEntry is one explicit extra combination with side attributes.
type IncludeEntry struct {
	Values map[string]cty.Value

	// Experimental marks the instance for reporting and implies tolerance.
	Experimental bool

	// ContinueOnError tolerates failure for this combination only.
	ContinueOnError bool
}

// StepSpec is one leaf action inside a job. Exactly one of Run or Uses is
// set: Run is an opaque command template, Uses names a builtin action.
type StepSpec struct {
	// Name labels the step in logs. Optional.
	Name string

	// Run is the command expression, evaluated against matrix/context/params
	// variables when the template is bound to a combination.
	Run hcl.Expression

	// Uses names a registered builtin action, e.g. "artifact/upload".
	Uses string

	// With holds the action's arguments, each an expression evaluated at
	// binding time alongside Run.
	With map[string]hcl.Expression

	// When is the optional step-level predicate. A false predicate omits
	// this single step; the instance continues.
	When predicate.Node
}

// RunContext carries the externally supplied trigger facts for one run.
// It is set once at pipeline start and read-only afterwards.
type RunContext struct {
	// Event is the trigger kind, e.g. "push" or "pull_request".
	Event string

	// Ref is the branch or ref the run was triggered for.
	Ref string

	// Params holds externally supplied parameters, e.g. a split fraction.
	Params map[string]string

	// RunID uniquely identifies this run in reports and logs.
	RunID uuid.UUID
}

// Templates returns the job templates in declaration order.
func (m *Model) Templates() []*JobTemplate {
	return m.Jobs
}

// Template returns the template with the given ID. The lookup index is
// built by Validate; calling Template on an unvalidated model returns false.
func (m *Model) Template(id string) (*JobTemplate, bool) {
	t, ok := m.byID[id]
	return t, ok
}
