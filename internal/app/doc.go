// Package app wires the pipeline engine together: document loading,
// matrix expansion, graph construction, scheduling, artifact plumbing and
// the final report, behind a single App type the CLI drives.
package app
