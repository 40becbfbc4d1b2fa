// Package config defines the format-agnostic pipeline model: job templates,
// matrix specifications, step specs, the run context, and the Loader
// interface implemented per document format. The model is immutable after
// loading; Validate is the single entry point for load-time structural
// checks (unique IDs, resolvable needs references, acyclic needs-graph).
package config
