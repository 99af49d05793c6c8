// Package dispatch fans a list of work items out to a per-item function,
// either one at a time or on a bounded pool of goroutines.
//
// Both modes guarantee one result per item and contain per-item panics, so a
// single misbehaving item cannot abort the rest of the job.
package dispatch
