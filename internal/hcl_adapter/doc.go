// Package hcl_adapter is the HCL implementation of the config.Loader
// interface: it parses pipeline documents written as `job` blocks with
// `needs`, `matrix`, `when` and `step` sub-blocks and translates them into
// the format-agnostic model. Step arguments stay hcl.Expression values
// until the matrix expander binds them to a concrete combination.
package hcl_adapter
