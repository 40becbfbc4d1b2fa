package scheduler

import "github.com/vk/pipegrid/internal/dag"

// readyQueue is a min-heap over unblocked nodes ordered by template
// declaration index, then combination key. Admission under limited
// capacity is therefore deterministic and never priority-based.
type readyQueue []*dag.Node

// Len implements heap.Interface.
func (q readyQueue) Len() int { return len(q) }

// Less implements heap.Interface.
func (q readyQueue) Less(i, j int) bool {
	a, b := q[i].Instance, q[j].Instance
	if a.TemplateIndex != b.TemplateIndex {
		return a.TemplateIndex < b.TemplateIndex
	}
	return a.Combination.Key() < b.Combination.Key()
}

// Swap implements heap.Interface.
func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

// Push implements heap.Interface.
func (q *readyQueue) Push(x any) { *q = append(*q, x.(*dag.Node)) }

// Pop implements heap.Interface.
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return node
}
