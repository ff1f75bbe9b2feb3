// Package coalesce merges bursts of partial-decode rectangles into a single
// delayed notification carrying their union.
//
// Timing is delegated to a Scheduler so the caller decides which goroutine
// runs the delivery callback. The dispatch package provides a Scheduler
// that runs callbacks on the presentation loop.
package coalesce
