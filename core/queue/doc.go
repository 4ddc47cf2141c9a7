// Package queue provides an in-process unit-of-work runner with explicit
// dependency edges.
//
// Units form a directed acyclic graph: a unit runs only after every unit it
// depends on has succeeded, and is skipped when a dependency fails. Units
// with no path between them may run concurrently on separate worker slots.
// Each job carries a mutable metadata bag used for advisory progress
// reporting, and a stable identifier so re-submitting the same logical unit
// is idempotent.
package queue
