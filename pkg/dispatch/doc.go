// Package dispatch turns a single-item remote operation into a batch
// operation with selectable concurrency, progress reporting, and three
// output shapes (list, map, table).
//
// The per-item operation is a pure function of (item, options); tasks share
// no mutable state, so the only coordination the dispatcher performs is
// bounding concurrency and reassembling results in input order. Sequential
// execution (Workers <= 1) fails fast on the first error; concurrent
// execution cancels the remaining queue on the first failure and reports
// that failure with the item that caused it.
package dispatch
