package dag

import "fmt"

// detectCycles checks the instance graph for cycles. Template-level
// validation already guarantees acyclicity, so a hit here indicates a
// lifting bug; the check is cheap and keeps the invariant local.
//
// Classic depth-first search with three sets of nodes: permanent (fully
// visited and known safe), temporary (in the current recursion stack), and
// unvisited.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *Node) error
	visit = func(n *Node) error {
		if permanent[n.ID] {
			return nil
		}
		if temporary[n.ID] {
			return fmt.Errorf("cycle detected involving instance %q", n.ID)
		}

		temporary[n.ID] = true
		for _, dependent := range n.Dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}
		delete(temporary, n.ID)
		permanent[n.ID] = true
		return nil
	}

	for _, n := range g.Nodes {
		if !permanent[n.ID] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}
