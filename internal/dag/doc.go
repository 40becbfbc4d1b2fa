// Package dag builds the instance-level dependency graph for one pipeline
// run: one node per expanded job instance, needs-edges lifted from
// templates to instances, a deterministic node order, per-node transitive
// closures, and the build-time artifact visibility check.
package dag
