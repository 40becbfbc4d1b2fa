// Package registry holds the builtin step actions a pipeline can invoke by
// name through a step's `uses` field, including the artifact bus surface
// (artifact/upload, artifact/download).
package registry
