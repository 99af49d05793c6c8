package dispatch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/tubefetch/internal/model"
)

func makeItems(n int) []model.WorkItem {
	items := make([]model.WorkItem, n)
	for i := range items {
		items[i] = model.WorkItem{ID: fmt.Sprintf("item-%d", i), Title: fmt.Sprintf("Item %d", i), Index: i + 1}
	}
	return items
}

// countingFunc fails items whose index is even and counts invocations per item.
type countingFunc struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingFunc) run(ctx context.Context, item model.WorkItem) model.ItemResult {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[item.ID]++
	c.mu.Unlock()

	if item.Index%2 == 0 {
		return model.ItemResult{Item: item, Outcome: model.Failed(model.KindRetryExhausted, "failed"), Attempts: 3}
	}
	return model.ItemResult{Item: item, Outcome: model.Succeeded(model.Artifact{Path: item.ID}), Attempts: 1}
}

func TestSequential_OrderAndIsolation(t *testing.T) {
	items := makeItems(6)
	fn := &countingFunc{}

	results := Sequential(context.Background(), items, fn.run)

	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, r := range results {
		if r.Item.ID != items[i].ID {
			t.Errorf("result[%d] = %s, want %s", i, r.Item.ID, items[i].ID)
		}
		if fn.calls[items[i].ID] != 1 {
			t.Errorf("%s invoked %d times, want 1", items[i].ID, fn.calls[items[i].ID])
		}
	}
}

func TestParallel_Bijection(t *testing.T) {
	for c := 1; c <= 5; c++ {
		for _, m := range []int{1, 4, 17} {
			t.Run(fmt.Sprintf("C=%d/M=%d", c, m), func(t *testing.T) {
				items := makeItems(m)
				fn := &countingFunc{}

				results := Parallel(context.Background(), items, fn.run, c)

				if len(results) != m {
					t.Fatalf("got %d results, want %d", len(results), m)
				}
				seen := make(map[string]bool)
				ok, failed := 0, 0
				for _, r := range results {
					if seen[r.Item.ID] {
						t.Fatalf("duplicate result for %s", r.Item.ID)
					}
					seen[r.Item.ID] = true
					if r.OK() {
						ok++
					} else {
						failed++
					}
				}
				for _, item := range items {
					if fn.calls[item.ID] != 1 {
						t.Errorf("%s invoked %d times, want 1", item.ID, fn.calls[item.ID])
					}
				}
				if ok+failed != m {
					t.Errorf("ok(%d) + failed(%d) != %d", ok, failed, m)
				}
			})
		}
	}
}

func TestParallel_RespectsLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32

	fn := func(ctx context.Context, item model.WorkItem) model.ItemResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return model.ItemResult{Item: item, Outcome: model.Succeeded(model.Artifact{}), Attempts: 1}
	}

	Parallel(context.Background(), makeItems(12), fn, limit)

	if got := peak.Load(); got > limit {
		t.Errorf("peak concurrency = %d, want <= %d", got, limit)
	}
}

func TestDispatch_RecoversPanics(t *testing.T) {
	fn := func(ctx context.Context, item model.WorkItem) model.ItemResult {
		if item.Index == 2 {
			panic("nil map write")
		}
		return model.ItemResult{Item: item, Outcome: model.Succeeded(model.Artifact{}), Attempts: 1}
	}

	modes := map[string]func([]model.WorkItem) []model.ItemResult{
		"sequential": func(items []model.WorkItem) []model.ItemResult {
			return Sequential(context.Background(), items, fn)
		},
		"parallel": func(items []model.WorkItem) []model.ItemResult {
			return Parallel(context.Background(), items, fn, 2)
		},
	}

	for name, run := range modes {
		t.Run(name, func(t *testing.T) {
			results := run(makeItems(3))
			if len(results) != 3 {
				t.Fatalf("got %d results, want 3", len(results))
			}
			var panicked *model.ItemResult
			for i := range results {
				if results[i].Item.Index == 2 {
					panicked = &results[i]
				}
			}
			if panicked == nil || panicked.OK() {
				t.Fatal("panicking item should produce a failure")
			}
			if panicked.Outcome.Kind != model.KindUnexpected || panicked.Outcome.Message != "nil map write" {
				t.Errorf("unexpected outcome: %v", panicked.Outcome)
			}
		})
	}
}

func TestSequential_StopsStartingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fn := func(ctx context.Context, item model.WorkItem) model.ItemResult {
		calls++
		if item.Index == 2 {
			cancel()
		}
		return model.ItemResult{Item: item, Outcome: model.Succeeded(model.Artifact{}), Attempts: 1}
	}

	results := Sequential(ctx, makeItems(5), fn)

	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
	if len(results) != 5 {
		t.Fatalf("got %d results, want 5", len(results))
	}
	for _, r := range results[2:] {
		if r.Outcome.Kind != model.KindCancelled || r.Attempts != 0 {
			t.Errorf("item %s should be cancelled with 0 attempts, got %v/%d", r.Item.ID, r.Outcome, r.Attempts)
		}
	}
}

func TestParallel_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	fn := func(ctx context.Context, item model.WorkItem) model.ItemResult {
		calls.Add(1)
		return model.ItemResult{Item: item, Outcome: model.Succeeded(model.Artifact{}), Attempts: 1}
	}

	results := Parallel(ctx, makeItems(4), fn, 2)

	if calls.Load() != 0 {
		t.Errorf("fn called %d times, want 0", calls.Load())
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
}

func TestParallel_StopsStartingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	fn := func(ctx context.Context, item model.WorkItem) model.ItemResult {
		calls.Add(1)
		if item.Index == 1 {
			// The next item is already waiting for this worker's slot.
			time.Sleep(20 * time.Millisecond)
			cancel()
		}
		return model.ItemResult{Item: item, Outcome: model.Succeeded(model.Artifact{}), Attempts: 1}
	}

	results := Parallel(ctx, makeItems(3), fn, 1)

	if calls.Load() != 1 {
		t.Errorf("fn called %d times, want 1", calls.Load())
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	cancelled := 0
	for _, r := range results {
		if r.Outcome.Kind == model.KindCancelled && r.Attempts == 0 {
			cancelled++
		}
	}
	if cancelled != 2 {
		t.Errorf("got %d cancelled results, want 2", cancelled)
	}
}

func TestParallel_Empty(t *testing.T) {
	if results := Parallel(context.Background(), nil, nil, 3); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
