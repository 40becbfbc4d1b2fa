package config

import "context"

// Loader is the interface for a format-specific pipeline document loader.
// Implementations translate their source format into the format-agnostic
// Model and must return it already validated.
type Loader interface {
	// Load reads the pipeline document at path, translates it into the
	// model, and validates it. Malformed documents fail with *ParseError;
	// structural problems fail with *UnknownJobReferenceError or
	// *CyclicDependencyError.
	Load(ctx context.Context, path string) (*Model, error)
}
