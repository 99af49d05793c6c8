// Package progress aggregates per-item completion events into a single
// progress view and provides formatting helpers for progress output.
//
// # Aggregator
//
//	agg := progress.NewAggregator(len(items))
//	snap := agg.Tick(item.Label()) // safe from any goroutine
//	fmt.Println(snap)              // "3/5 completed (03 - Song)"
//
// Completed is monotonically non-decreasing and never exceeds Total.
package progress
