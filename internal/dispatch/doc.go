// Package dispatch provides the presentation loop: a single goroutine that
// runs posted functions one at a time, in order.
//
// Work that must not run concurrently with other presentation work (icon
// lookups, coalesced region delivery) is posted here. Loop also implements
// coalesce.Scheduler, so timers armed through it fire on the loop.
package dispatch
