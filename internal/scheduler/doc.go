// Package scheduler executes the instance graph: a single-writer event
// loop over the execution record table, a deterministic ready heap for
// admission under bounded worker capacity, and the failure policy:
// transitive cancellation along needs-edges, matrix fail-fast, and
// tolerated (continue-on-error) failures.
//
// No ordering is promised between instances without a dependency relation;
// only the final record table is deterministic given deterministic leaf
// outcomes.
package scheduler
