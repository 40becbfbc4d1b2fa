// Package artifact implements the run-scoped artifact bus: named immutable
// blobs published by one job instance and consumable by its transitive
// dependents. Eligibility is decided when the graph is built; the bus only
// enforces the precomputed sets.
package artifact
