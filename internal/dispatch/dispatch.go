package dispatch

import (
	"context"
	"fmt"

	"github.com/handiism/tubefetch/internal/model"
	"golang.org/x/sync/errgroup"
)

// ItemFunc processes one work item and returns its result.
type ItemFunc func(ctx context.Context, item model.WorkItem) model.ItemResult

// Sequential processes items one at a time in input order.
//
// A failed item never stops the loop. Once ctx is done, the remaining items
// are not started and are reported as cancelled. The returned slice always
// has one result per input item, in input order.
func Sequential(ctx context.Context, items []model.WorkItem, fn ItemFunc) []model.ItemResult {
	results := make([]model.ItemResult, 0, len(items))
	for _, item := range items {
		if ctx.Err() != nil {
			results = append(results, cancelled(item))
			continue
		}
		results = append(results, safeCall(ctx, item, fn))
	}
	return results
}

// Parallel processes items on at most maxConcurrency goroutines and returns
// the results in completion order.
//
// The bound is trusted as given; values below 1 are treated as 1. Every item
// is either passed to fn exactly once or, when ctx is done before it could be
// started, reported as cancelled.
func Parallel(ctx context.Context, items []model.WorkItem, fn ItemFunc, maxConcurrency int) []model.ItemResult {
	if len(items) == 0 {
		return nil
	}
	limit := min(max(maxConcurrency, 1), len(items))

	out := make(chan model.ItemResult, len(items))

	var g errgroup.Group
	g.SetLimit(limit)

	go func() {
		for _, item := range items {
			if ctx.Err() != nil {
				out <- cancelled(item)
				continue
			}
			// Go blocks while limit workers are busy, so ctx is checked
			// again once a slot frees up.
			g.Go(func() error {
				if ctx.Err() != nil {
					out <- cancelled(item)
					return nil
				}
				out <- safeCall(ctx, item, fn)
				return nil
			})
		}
		_ = g.Wait()
		close(out)
	}()

	results := make([]model.ItemResult, 0, len(items))
	for r := range out {
		results = append(results, r)
	}
	return results
}

// safeCall runs fn for one item and turns a panic into a Failure result.
func safeCall(ctx context.Context, item model.WorkItem, fn ItemFunc) (result model.ItemResult) {
	defer func() {
		if r := recover(); r != nil {
			result = model.ItemResult{
				Item:     item,
				Outcome:  model.Failed(model.KindUnexpected, fmt.Sprint(r)),
				Attempts: 1,
			}
		}
	}()
	return fn(ctx, item)
}

func cancelled(item model.WorkItem) model.ItemResult {
	return model.ItemResult{
		Item:    item,
		Outcome: model.Failed(model.KindCancelled, "not started: job cancelled"),
	}
}
