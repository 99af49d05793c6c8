package download

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/handiism/tubefetch/internal/model"
	"github.com/handiism/tubefetch/internal/retry"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func collection(n int) model.ResolvedTarget {
	items := make([]model.WorkItem, n)
	for i := range items {
		items[i] = model.WorkItem{
			ID:         fmt.Sprintf("https://www.youtube.com/watch?v=item%d", i+1),
			Title:      fmt.Sprintf("Item %d", i+1),
			Index:      i + 1,
			Collection: "Mix",
		}
	}
	return model.Collection("Mix", items)
}

func staticResolver(target model.ResolvedTarget) ResolverFunc {
	return func(ctx context.Context, reference string) (model.ResolvedTarget, error) {
		return target, nil
	}
}

// scriptedFetcher fails an item until it has been called failures[id] times.
// A negative value fails forever.
type scriptedFetcher struct {
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
}

func newScriptedFetcher(failures map[string]int) *scriptedFetcher {
	return &scriptedFetcher{failures: failures, calls: make(map[string]int)}
}

func (f *scriptedFetcher) Fetch(ctx context.Context, item model.WorkItem) (model.Artifact, error) {
	f.mu.Lock()
	f.calls[item.ID]++
	n := f.calls[item.ID]
	limit := f.failures[item.ID]
	f.mu.Unlock()

	if limit < 0 || n <= limit {
		return model.Artifact{}, fmt.Errorf("network error on attempt %d", n)
	}
	return model.Artifact{Path: "/music/" + item.Title + ".mp3", Size: 1024}, nil
}

func (f *scriptedFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := 0
	for _, n := range f.calls {
		sum += n
	}
	return sum
}

type memoryRecorder struct {
	mu      sync.Mutex
	items   []model.WorkItem
	err     error
	onWrite func(model.WorkItem)
}

func (r *memoryRecorder) Record(ctx context.Context, item model.WorkItem, outcome model.FetchOutcome) error {
	if r.onWrite != nil {
		r.onWrite(item)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append(r.items, item)
	return nil
}

func (r *memoryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func TestEngine_ParallelCollectionWithFailures(t *testing.T) {
	target := collection(5)
	fetcher := newScriptedFetcher(map[string]int{
		target.Items[1].ID: -1,
		target.Items[3].ID: -1,
	})
	recorder := &memoryRecorder{}

	engine := NewEngine(staticResolver(target), fetcher, recorder,
		WithRetryPolicy(retry.Policy{MaxRetries: 2, BaseBackoff: time.Second}, retry.WithSleep(noSleep)),
		WithParallel(true, 3),
	)

	report, err := engine.Run(context.Background(), "playlist")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Kind != model.TargetCollection {
		t.Errorf("Kind = %v, want collection", report.Kind)
	}
	if len(report.RunID) != 36 {
		t.Errorf("RunID = %q, want a UUID", report.RunID)
	}
	if report.Total != 5 || report.Successful != 3 || len(report.Failed) != 2 {
		t.Fatalf("total=%d ok=%d failed=%d, want 5/3/2", report.Total, report.Successful, len(report.Failed))
	}
	for _, f := range report.Failed {
		if f.Attempts != 3 {
			t.Errorf("%s attempts = %d, want 3", f.Item.ID, f.Attempts)
		}
		if f.Outcome.Kind != model.KindRetryExhausted {
			t.Errorf("%s kind = %q, want %q", f.Item.ID, f.Outcome.Kind, model.KindRetryExhausted)
		}
	}
	if recorder.count() != 3 {
		t.Errorf("recorded %d items, want 3", recorder.count())
	}
	if got := engine.Progress(); got.Completed != 5 || got.Total != 5 {
		t.Errorf("final progress = %+v, want 5/5", got)
	}
	if engine.Phase() != PhaseDone {
		t.Errorf("Phase() = %v, want done", engine.Phase())
	}
}

func TestEngine_SingleItemRetriesOnce(t *testing.T) {
	item := model.WorkItem{ID: "https://youtu.be/abc", Title: "Song"}
	fetcher := newScriptedFetcher(map[string]int{item.ID: 1})
	recorder := &memoryRecorder{}

	engine := NewEngine(staticResolver(model.Single(item)), fetcher, recorder,
		WithRetryPolicy(retry.Policy{MaxRetries: 1, BaseBackoff: time.Second}, retry.WithSleep(noSleep)),
	)

	report, err := engine.Run(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if fetcher.total() != 2 {
		t.Errorf("fetch called %d times, want 2", fetcher.total())
	}
	if report.Kind != model.TargetSingle || report.Total != 1 || report.Successful != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if recorder.count() != 1 {
		t.Errorf("recorded %d times, want 1", recorder.count())
	}
}

func TestEngine_ResolutionFailure(t *testing.T) {
	resolver := ResolverFunc(func(ctx context.Context, reference string) (model.ResolvedTarget, error) {
		return model.ResolvedTarget{}, &model.ResolutionError{Reference: reference, Reason: "not a YouTube URL"}
	})
	fetcher := newScriptedFetcher(nil)
	recorder := &memoryRecorder{}

	engine := NewEngine(resolver, fetcher, recorder)
	report, err := engine.Run(context.Background(), "ftp://nope")

	var re *model.ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if report != nil {
		t.Error("no report should be produced")
	}
	if fetcher.total() != 0 || recorder.count() != 0 {
		t.Errorf("fetch=%d record=%d, want no calls", fetcher.total(), recorder.count())
	}
}

func TestEngine_WrapsPlainResolverErrors(t *testing.T) {
	resolver := ResolverFunc(func(ctx context.Context, reference string) (model.ResolvedTarget, error) {
		return model.ResolvedTarget{}, errors.New("exec: yt-dlp not found")
	})

	_, err := NewEngine(resolver, newScriptedFetcher(nil), nil).Run(context.Background(), "x")

	var re *model.ResolutionError
	if !errors.As(err, &re) || re.Reference != "x" {
		t.Fatalf("expected wrapped ResolutionError, got %v", err)
	}
}

func TestEngine_SequentialPreservesOrder(t *testing.T) {
	target := collection(4)
	recorder := &memoryRecorder{}

	engine := NewEngine(staticResolver(target), newScriptedFetcher(nil), recorder, WithParallel(false, 5))
	report, err := engine.Run(context.Background(), "playlist")
	if err != nil {
		t.Fatal(err)
	}
	if report.Successful != 4 {
		t.Fatalf("Successful = %d, want 4", report.Successful)
	}
	for i, item := range recorder.items {
		if item.ID != target.Items[i].ID {
			t.Errorf("record[%d] = %s, want %s", i, item.ID, target.Items[i].ID)
		}
	}
}

func TestEngine_RecordHappensBeforeTick(t *testing.T) {
	target := collection(6)
	var engine *Engine

	// Sequential dispatch, so item i is recorded while i-1 items are done.
	recordedAt := make(map[int]int)
	recorder := &memoryRecorder{onWrite: func(item model.WorkItem) {
		recordedAt[item.Index] = engine.Progress().Completed
	}}

	var snaps []int
	engine = NewEngine(staticResolver(target), newScriptedFetcher(nil), recorder,
		WithParallel(false, 1),
		WithProgress(func(e ProgressEvent) {
			if e.Snapshot != nil {
				snaps = append(snaps, e.Snapshot.Completed)
			}
		}),
	)

	if _, err := engine.Run(context.Background(), "playlist"); err != nil {
		t.Fatal(err)
	}

	if len(recordedAt) != 6 {
		t.Fatalf("recorded %d items, want 6", len(recordedAt))
	}
	for idx, completed := range recordedAt {
		if completed != idx-1 {
			t.Errorf("item %d recorded when progress was %d, want %d", idx, completed, idx-1)
		}
	}
	if !sort.IntsAreSorted(snaps) || len(snaps) != 6 {
		t.Errorf("snapshot counts = %v, want 6 increasing values", snaps)
	}
}

func TestEngine_RecorderErrorFailsItem(t *testing.T) {
	item := model.WorkItem{ID: "https://youtu.be/abc", Title: "Song"}
	recorder := &memoryRecorder{err: errors.New("disk full")}

	engine := NewEngine(staticResolver(model.Single(item)), newScriptedFetcher(nil), recorder)
	report, err := engine.Run(context.Background(), item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if report.Successful != 0 || len(report.Failed) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := report.Failed[0].Outcome; got.Kind != model.KindRecordFailed || got.Message != "disk full" {
		t.Errorf("outcome = %v", got)
	}
}

func TestEngine_PanickingFetcherIsContained(t *testing.T) {
	target := collection(3)
	fetcher := FetcherFunc(func(ctx context.Context, item model.WorkItem) (model.Artifact, error) {
		if item.Index == 2 {
			var m map[string]int
			m["boom"]++
		}
		return model.Artifact{Path: item.Title}, nil
	})

	engine := NewEngine(staticResolver(target), fetcher, nil,
		WithParallel(true, 2),
		WithRetryPolicy(retry.Policy{MaxRetries: 1, BaseBackoff: time.Second}, retry.WithSleep(noSleep)),
	)
	report, err := engine.Run(context.Background(), "playlist")
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 3 || report.Successful != 2 || len(report.Failed) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	failed := report.Failed[0]
	if failed.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", failed.Attempts)
	}
	if !strings.HasPrefix(failed.Outcome.Message, "panic: ") {
		t.Errorf("message = %q, want panic prefix", failed.Outcome.Message)
	}
	if got := engine.Progress(); got.Completed != got.Total || got.Total != 3 {
		t.Errorf("progress = %s, want 3/3", got)
	}
}

func TestEngine_CancellationStopsNewWork(t *testing.T) {
	target := collection(5)
	ctx, cancel := context.WithCancel(context.Background())
	recorder := &memoryRecorder{}

	fetcher := FetcherFunc(func(ctx context.Context, item model.WorkItem) (model.Artifact, error) {
		if item.Index == 2 {
			cancel()
		}
		return model.Artifact{Path: item.Title}, nil
	})

	engine := NewEngine(staticResolver(target), fetcher, recorder, WithParallel(false, 1))
	report, err := engine.Run(ctx, "playlist")
	if err != nil {
		t.Fatal(err)
	}

	if !report.Cancelled {
		t.Error("report should be marked cancelled")
	}
	if report.Successful != 2 || len(report.Failed) != 3 {
		t.Errorf("ok=%d failed=%d, want 2/3", report.Successful, len(report.Failed))
	}
	if report.Successful+len(report.Failed) != report.Total {
		t.Error("successful + failed should equal total")
	}
	if recorder.count() != 2 {
		t.Errorf("recorded %d, want 2 items recorded before cancellation", recorder.count())
	}
}

func TestEngine_AllFailStillReports(t *testing.T) {
	target := collection(3)
	failures := map[string]int{}
	for _, item := range target.Items {
		failures[item.ID] = -1
	}

	engine := NewEngine(staticResolver(target), newScriptedFetcher(failures), nil,
		WithRetryPolicy(retry.Policy{MaxRetries: 0, BaseBackoff: time.Second}, retry.WithSleep(noSleep)),
		WithParallel(true, 2),
	)
	report, err := engine.Run(context.Background(), "playlist")
	if err != nil {
		t.Fatal(err)
	}
	if report.Successful != 0 || len(report.Failed) != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestMultiRecorder(t *testing.T) {
	a := &memoryRecorder{}
	b := &memoryRecorder{err: errors.New("b failed")}
	c := &memoryRecorder{}

	err := MultiRecorder{a, nil, b, c}.Record(context.Background(), model.WorkItem{ID: "x"}, model.Succeeded(model.Artifact{}))
	if err == nil || err.Error() != "b failed" {
		t.Errorf("err = %v, want b failed", err)
	}
	if a.count() != 1 || c.count() != 1 {
		t.Error("every recorder should be called")
	}
}

func TestEngine_ConcurrentRunsAreSerialized(t *testing.T) {
	var active, overlaps atomic.Int32
	fetcher := FetcherFunc(func(ctx context.Context, item model.WorkItem) (model.Artifact, error) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return model.Artifact{Path: item.Title}, nil
	})

	engine := NewEngine(staticResolver(collection(2)), fetcher, nil)

	var wg sync.WaitGroup
	reports := make([]*model.JobReport, 3)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], _ = engine.Run(context.Background(), "playlist")
		}()
	}
	wg.Wait()

	if n := overlaps.Load(); n != 0 {
		t.Errorf("%d fetches overlapped another run", n)
	}
	for i, r := range reports {
		if r == nil || r.Successful != 2 {
			t.Errorf("run %d: unexpected report %+v", i, r)
		}
	}
	if got := engine.Progress(); got.Completed != 2 || got.Total != 2 {
		t.Errorf("progress = %s, want 2/2", got)
	}
}
