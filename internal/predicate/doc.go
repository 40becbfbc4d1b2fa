// Package predicate defines the small tagged-variant condition tree that
// gates jobs and steps. Loaders build the tree directly from `when` blocks;
// there is no expression language and no dynamic evaluation, only typed
// variants folded over the run's trigger context.
package predicate
