// Package display renders polling-health metrics for the developer
// monitor.
//
// Every formatter here is total: missing, negative, NaN, or infinite
// inputs render as a fixed placeholder string instead of erroring. The
// table helpers follow the same rule at row level, emitting a placeholder
// row for an empty snapshot so the monitor view never has to special-case
// the cold-start state.
package display
