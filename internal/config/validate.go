package config

import "fmt"

// Validate checks the structural integrity of a loaded model and builds the
// template lookup index. It enforces unique job IDs, resolvable `needs`
// references, and an acyclic needs-graph. Loaders call it before returning
// a model; a validation failure aborts the run before anything starts.
func (m *Model) Validate() error {
	m.byID = make(map[string]*JobTemplate, len(m.Jobs))
	for i, tmpl := range m.Jobs {
		if tmpl.ID == "" {
			return fmt.Errorf("job at position %d has an empty id", i)
		}
		if _, exists := m.byID[tmpl.ID]; exists {
			return fmt.Errorf("duplicate job id %q", tmpl.ID)
		}
		tmpl.Index = i
		m.byID[tmpl.ID] = tmpl
	}

	for _, tmpl := range m.Jobs {
		for _, ref := range tmpl.Needs {
			if _, ok := m.byID[ref]; !ok {
				return &UnknownJobReferenceError{JobID: tmpl.ID, Ref: ref}
			}
			if ref == tmpl.ID {
				return &CyclicDependencyError{Cycle: []string{tmpl.ID, tmpl.ID}}
			}
		}
	}

	return m.detectCycles()
}

// detectCycles runs a classic depth-first search with three node sets:
// permanent (fully visited, known safe), temporary (in the current recursion
// stack), and unvisited. Hitting a temporary node means the needs-graph
// loops; the error reports the cycle members in stack order.
func (m *Model) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string

	var visit func(tmpl *JobTemplate) error
	visit = func(tmpl *JobTemplate) error {
		if permanent[tmpl.ID] {
			return nil
		}
		if temporary[tmpl.ID] {
			// Trim the stack down to where the cycle starts, then close it.
			start := 0
			for i, id := range stack {
				if id == tmpl.ID {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, stack[start:]...), tmpl.ID)
			return &CyclicDependencyError{Cycle: cycle}
		}

		temporary[tmpl.ID] = true
		stack = append(stack, tmpl.ID)

		for _, ref := range tmpl.Needs {
			if err := visit(m.byID[ref]); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(temporary, tmpl.ID)
		permanent[tmpl.ID] = true
		return nil
	}

	for _, tmpl := range m.Jobs {
		if !permanent[tmpl.ID] {
			if err := visit(tmpl); err != nil {
				return err
			}
		}
	}
	return nil
}
