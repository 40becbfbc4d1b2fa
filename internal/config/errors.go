package config

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed pipeline document. It is fatal: the run
// never starts.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing pipeline document %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnknownJobReferenceError reports a `needs` entry naming a job that is not
// declared anywhere in the document.
type UnknownJobReferenceError struct {
	JobID string
	Ref   string
}

// Error implements the error interface.
func (e *UnknownJobReferenceError) Error() string {
	return fmt.Sprintf("job %q needs undeclared job %q", e.JobID, e.Ref)
}

// CyclicDependencyError reports a cycle in the needs-graph over templates.
// Cycle lists the members in traversal order, closing back on the first.
type CyclicDependencyError struct {
	Cycle []string
}

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic job dependency: %s", strings.Join(e.Cycle, " -> "))
}
