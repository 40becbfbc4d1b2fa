package dag

import "github.com/vk/pipegrid/internal/matrix"

// Graph is the instance-level dependency graph for one run. It is built
// once, after matrix expansion, and is immutable during execution.
type Graph struct {
	// Nodes stores all nodes keyed by instance ID.
	Nodes map[string]*Node

	// Order holds the nodes in deterministic order: template declaration
	// index first, then combination key. This is the scheduler's admission
	// tie-break order and the report's listing order.
	Order []*Node

	byTemplate map[string][]*Node
}

// Node is a single vertex: one job instance plus its dependency links.
type Node struct {
	// ID is the instance identifier, e.g. "job.test[os=linux,py=3.11]".
	ID string

	// Instance is the bound job instance this node schedules.
	Instance *matrix.Instance

	// Deps holds the nodes this node needs (predecessors).
	Deps map[string]*Node

	// Dependents holds the nodes that need this node (successors).
	Dependents map[string]*Node

	// Closure is the transitive needs-closure: every instance ID reachable
	// through Deps edges, excluding the node itself. Artifact visibility is
	// decided against this set.
	Closure map[string]struct{}
}

// Siblings returns the nodes expanded from the given template, in order.
func (g *Graph) Siblings(templateID string) []*Node {
	return g.byTemplate[templateID]
}
