package predicate

import "strings"

// Context carries the read-only trigger facts a predicate may inspect: the
// event kind and ref supplied at pipeline start, externally supplied
// parameters, and the matrix values the instance under evaluation was bound
// to. It is assembled per instance; predicates never see mutable run state.
type Context struct {
	Event  string
	Ref    string
	Params map[string]string
	Matrix map[string]string
}

// Node is one variant of the predicate tree. Implementations are pure:
// evaluation reads the Context and nothing else.
type Node interface {
	Eval(ctx Context) bool
}

// Event matches when the triggering event kind equals the given value.
type Event string

// Eval implements Node.
func (e Event) Eval(ctx Context) bool {
	return string(e) == ctx.Event
}

// Branch matches when the run's ref equals the given value.
type Branch string

// Eval implements Node.
func (b Branch) Eval(ctx Context) bool {
	return string(b) == ctx.Ref
}

// MatrixContains matches when the named matrix axis is bound and its value
// contains Substr. An instance with no binding for the axis never matches.
type MatrixContains struct {
	Axis   string
	Substr string
}

// Eval implements Node.
func (m MatrixContains) Eval(ctx Context) bool {
	v, ok := ctx.Matrix[m.Axis]
	return ok && strings.Contains(v, m.Substr)
}

// ParamEquals matches when the named external parameter equals Value.
type ParamEquals struct {
	Key   string
	Value string
}

// Eval implements Node.
func (p ParamEquals) Eval(ctx Context) bool {
	return ctx.Params[p.Key] == p.Value
}

// All is the conjunction of its children. An empty All is true.
type All []Node

// Eval implements Node.
func (a All) Eval(ctx Context) bool {
	for _, n := range a {
		if !n.Eval(ctx) {
			return false
		}
	}
	return true
}

// Any is the disjunction of its children. An empty Any is false.
type Any []Node

// Eval implements Node.
func (a Any) Eval(ctx Context) bool {
	for _, n := range a {
		if n.Eval(ctx) {
			return true
		}
	}
	return false
}

// Not negates its child.
type Not struct {
	X Node
}

// Eval implements Node.
func (n Not) Eval(ctx Context) bool {
	return !n.X.Eval(ctx)
}
