package dag

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/matrix"
)

// Build materializes every template through the matrix expander and lifts
// the template-level needs-edges to instance level: an instance needs every
// instance of each prerequisite template. The model must already be
// validated; Build re-checks acyclicity at instance level and verifies
// artifact visibility for download steps so eligibility failures surface
// before anything runs.
func Build(ctx context.Context, model *config.Model, runCtx *config.RunContext) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	g := &Graph{
		Nodes:      make(map[string]*Node),
		byTemplate: make(map[string][]*Node),
	}

	for _, tmpl := range model.Templates() {
		instances, err := matrix.Expand(tmpl, runCtx)
		if err != nil {
			return nil, err
		}
		logger.Debug("Expanded template.", "job", tmpl.ID, "instances", len(instances))

		for _, inst := range instances {
			node := &Node{
				ID:         inst.ID(),
				Instance:   inst,
				Deps:       make(map[string]*Node),
				Dependents: make(map[string]*Node),
			}
			if _, exists := g.Nodes[node.ID]; exists {
				return nil, fmt.Errorf("duplicate instance id %q", node.ID)
			}
			g.Nodes[node.ID] = node
			g.byTemplate[tmpl.ID] = append(g.byTemplate[tmpl.ID], node)
		}
	}

	for _, tmpl := range model.Templates() {
		for _, ref := range tmpl.Needs {
			for _, node := range g.byTemplate[tmpl.ID] {
				for _, dep := range g.byTemplate[ref] {
					node.Deps[dep.ID] = dep
					dep.Dependents[node.ID] = node
				}
			}
		}
	}

	g.Order = orderNodes(g)

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	computeClosures(g)
	if err := checkArtifactVisibility(g); err != nil {
		return nil, err
	}

	logger.Debug("Instance graph built.", "nodes", len(g.Nodes))
	return g, nil
}

// orderNodes sorts by template declaration index, then combination key.
func orderNodes(g *Graph) []*Node {
	order := make([]*Node, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		order = append(order, node)
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i].Instance, order[j].Instance
		if a.TemplateIndex != b.TemplateIndex {
			return a.TemplateIndex < b.TemplateIndex
		}
		return a.Combination.Key() < b.Combination.Key()
	})
	return order
}

// computeClosures fills each node's transitive needs-closure with a
// memoized depth-first walk. The graph is acyclic by the time this runs.
func computeClosures(g *Graph) {
	var walk func(n *Node) map[string]struct{}
	walk = func(n *Node) map[string]struct{} {
		if n.Closure != nil {
			return n.Closure
		}
		closure := make(map[string]struct{})
		for id, dep := range n.Deps {
			closure[id] = struct{}{}
			for transitive := range walk(dep) {
				closure[transitive] = struct{}{}
			}
		}
		n.Closure = closure
		return closure
	}
	for _, node := range g.Order {
		walk(node)
	}
}

// Visibility returns, per consumer instance ID, the set of instance IDs
// whose artifacts it may consume. This is handed to the artifact bus at
// run start.
func (g *Graph) Visibility() map[string]map[string]struct{} {
	vis := make(map[string]map[string]struct{}, len(g.Nodes))
	for id, node := range g.Nodes {
		vis[id] = node.Closure
	}
	return vis
}
