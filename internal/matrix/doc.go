// Package matrix materializes job templates into concrete job instances.
// Expansion is two explicit passes: the Cartesian product over declared
// axes, then a union of include entries deduplicated by combination key.
// Step expressions are evaluated here, at binding time, so every instance
// carries fully concrete leaf commands and action arguments.
package matrix
