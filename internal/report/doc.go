// Package report is the result aggregator: it folds per-instance execution
// records into the aggregate verdict and renders the per-instance
// breakdown, sufficient to identify which instances caused a failure and
// whether each failure was tolerated.
package report
