package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/handiism/tubefetch/internal/config"
	"github.com/handiism/tubefetch/internal/dispatch"
	"github.com/handiism/tubefetch/internal/model"
	"github.com/handiism/tubefetch/internal/progress"
	"github.com/handiism/tubefetch/internal/retry"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a job progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// Snapshot is set on per-item completion events.
	Snapshot *progress.Snapshot
}

// Phase is the stage a run is in.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseDispatching
	PhaseAggregating
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseResolving:
		return "resolving"
	case PhaseDispatching:
		return "dispatching"
	case PhaseAggregating:
		return "aggregating"
	case PhaseDone:
		return "done"
	default:
		return "idle"
	}
}

// Engine runs one job at a time: it resolves a reference, dispatches the
// resulting items with retry, records successes and builds a JobReport.
// Concurrent calls to Run are serialized, so Phase and Progress always
// describe a single run.
//
// The progress callback may be invoked from several goroutines at once when
// parallel downloads are enabled.
type Engine struct {
	resolver Resolver
	fetcher  Fetcher
	recorder Recorder

	policy      retry.Policy
	retryOpts   []retry.Option
	parallel    bool
	maxParallel int

	logger     *slog.Logger
	onProgress func(ProgressEvent)

	runMu sync.Mutex
	phase atomic.Int32
	agg   atomic.Pointer[progress.Aggregator]
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine and its retry executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn func(ProgressEvent)) Option {
	return func(e *Engine) {
		e.onProgress = fn
	}
}

// WithRetryPolicy sets the per-item retry policy.
func WithRetryPolicy(p retry.Policy, opts ...retry.Option) Option {
	return func(e *Engine) {
		e.policy = p
		e.retryOpts = opts
	}
}

// WithParallel enables bounded parallel dispatch for collections.
// maxParallel is trusted as given; clamp it through config.Settings.
func WithParallel(enabled bool, maxParallel int) Option {
	return func(e *Engine) {
		e.parallel = enabled
		e.maxParallel = maxParallel
	}
}

// SettingsOptions derives engine options from settings.
func SettingsOptions(s *config.Settings) []Option {
	return []Option{
		WithRetryPolicy(s.RetryPolicy()),
		WithParallel(s.ParallelDownloads, s.MaxParallelDownloads),
	}
}

// NewEngine creates an Engine. recorder may be nil.
func NewEngine(resolver Resolver, fetcher Fetcher, recorder Recorder, opts ...Option) *Engine {
	e := &Engine{
		resolver:    resolver,
		fetcher:     fetcher,
		recorder:    recorder,
		policy:      config.DefaultSettings().RetryPolicy(),
		maxParallel: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.recorder == nil {
		e.recorder = MultiRecorder{}
	}
	return e
}

// Phase returns the phase of the current or last run.
func (e *Engine) Phase() Phase {
	return Phase(e.phase.Load())
}

// Progress returns the progress of the current or last run.
func (e *Engine) Progress() progress.Snapshot {
	if agg := e.agg.Load(); agg != nil {
		return agg.Read()
	}
	return progress.Snapshot{}
}

// Run resolves reference and downloads every resulting item.
//
// The only error Run returns is a *model.ResolutionError; per-item failures
// are reported in the JobReport. When ctx is cancelled, items that were not
// started are reported as cancelled failures and report.Cancelled is set.
// A Run started while another is in progress waits for it to finish.
func (e *Engine) Run(ctx context.Context, reference string) (*model.JobReport, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	executor := retry.NewExecutor(e.policy, logger, e.retryOpts...)

	e.setPhase(PhaseResolving)
	e.progress(ProgressEvent{Message: fmt.Sprintf("Fetching info: %s", reference), Level: LevelVerbose})

	target, err := e.resolve(ctx, logger, reference)
	if err != nil {
		e.setPhase(PhaseDone)
		e.progress(ProgressEvent{Message: err.Error(), Level: LevelError})
		return nil, err
	}

	items := target.Items
	agg := progress.NewAggregator(len(items))
	e.agg.Store(agg)

	if target.Kind == model.TargetCollection {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Found playlist: %s (%d items)", target.Title, len(items)), Level: LevelInfo})
	} else {
		e.progress(ProgressEvent{Message: fmt.Sprintf("Found: %s", target.Title), Level: LevelInfo})
	}

	e.setPhase(PhaseDispatching)
	perItem := e.itemFunc(agg, executor, logger)

	var results []model.ItemResult
	if target.Kind == model.TargetCollection && e.parallel && len(items) > 1 {
		limit := min(e.maxParallel, len(items))
		logger.Info("dispatching in parallel", "items", len(items), "workers", limit)
		results = dispatch.Parallel(ctx, items, perItem, limit)
	} else {
		logger.Info("dispatching sequentially", "items", len(items))
		results = dispatch.Sequential(ctx, items, perItem)
	}

	e.setPhase(PhaseAggregating)
	report := model.NewJobReport(target, results, wasCancelled(results))
	report.RunID = runID
	e.setPhase(PhaseDone)

	logger.Info("job finished", "title", report.Title, "total", report.Total,
		"successful", report.Successful, "failed", len(report.Failed), "cancelled", report.Cancelled)
	e.progress(summaryEvent(report))

	return report, nil
}

func (e *Engine) resolve(ctx context.Context, logger *slog.Logger, reference string) (model.ResolvedTarget, error) {
	target, err := e.resolver.Resolve(ctx, reference)
	if err != nil {
		var re *model.ResolutionError
		if !errors.As(err, &re) {
			re = &model.ResolutionError{Reference: reference, Reason: "resolver failed", Err: err}
		}
		logger.Error("resolution failed", "reference", reference, "error", err)
		return model.ResolvedTarget{}, re
	}
	if target.Kind == model.TargetSingle && len(target.Items) != 1 {
		return model.ResolvedTarget{}, &model.ResolutionError{
			Reference: reference,
			Reason:    fmt.Sprintf("single reference resolved to %d items", len(target.Items)),
		}
	}
	return target, nil
}

// itemFunc builds the per-item closure: fetch with retry, record, then tick.
// Recording happens before the tick so progress never runs ahead of history.
func (e *Engine) itemFunc(agg *progress.Aggregator, executor *retry.Executor, logger *slog.Logger) dispatch.ItemFunc {
	maxAttempts := executor.Policy().Attempts()

	return func(ctx context.Context, item model.WorkItem) model.ItemResult {
		label := item.Label()
		logger.Info("download started", "item", item.ShortID(), "title", item.Title)
		e.progress(ProgressEvent{Message: fmt.Sprintf("Downloading: %s", label), Level: LevelVerbose})

		calls := 0
		outcome, attempts := executor.Execute(ctx, item.ID, func(ctx context.Context) model.FetchOutcome {
			calls++
			if calls > 1 {
				e.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s", calls, maxAttempts, label), Level: LevelWarning})
			}
			return e.fetchOnce(ctx, item)
		})

		if outcome.OK() {
			if err := e.recorder.Record(ctx, item, outcome); err != nil {
				logger.Error("record failed", "item", item.ShortID(), "error", err)
				outcome = model.Failed(model.KindRecordFailed, err.Error())
			}
		}

		snap := agg.Tick(label)

		if outcome.OK() {
			logger.Info("download completed", "title", item.Title,
				"size", progress.FormatBytes(outcome.Artifact.Size), "duration", progress.FormatDuration(item.Duration))
			e.progress(ProgressEvent{
				Message:  fmt.Sprintf("Downloaded: %s [%s]", label, snap),
				Level:    LevelSuccess,
				Snapshot: &snap,
			})
		} else {
			logger.Error("download failed", "item", item.ShortID(), "attempts", attempts, "error", outcome.Err())
			e.progress(ProgressEvent{
				Message:  fmt.Sprintf("Failed: %s: %s [%s]", label, outcome.Message, snap),
				Level:    LevelError,
				Snapshot: &snap,
			})
		}

		return model.ItemResult{Item: item, Outcome: outcome, Attempts: attempts}
	}
}

// fetchOnce turns one fetch call into an outcome. Every error is transient.
// A panicking fetcher yields an unexpected failure so the item still goes
// through retry and progress like any other failure.
func (e *Engine) fetchOnce(ctx context.Context, item model.WorkItem) (outcome model.FetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("fetcher panicked", "item", item.ShortID(), "panic", r)
			outcome = model.Failed(model.KindUnexpected, fmt.Sprintf("panic: %v", r))
		}
	}()

	artifact, err := e.fetcher.Fetch(ctx, item)
	if err != nil {
		return model.Failed(model.KindTransient, err.Error())
	}
	return model.Succeeded(artifact)
}

func (e *Engine) setPhase(p Phase) {
	e.phase.Store(int32(p))
	e.logger.Debug("phase", "phase", p.String())
}

func (e *Engine) progress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}

func wasCancelled(results []model.ItemResult) bool {
	for _, r := range results {
		if !r.OK() && r.Outcome.Kind == model.KindCancelled {
			return true
		}
	}
	return false
}

func summaryEvent(report *model.JobReport) ProgressEvent {
	switch {
	case report.Cancelled:
		return ProgressEvent{
			Message: fmt.Sprintf("Cancelled %s: %d/%d downloaded", report.Title, report.Successful, report.Total),
			Level:   LevelWarning,
		}
	case len(report.Failed) == 0:
		return ProgressEvent{
			Message: fmt.Sprintf("Successfully downloaded %s (%d/%d)", report.Title, report.Successful, report.Total),
			Level:   LevelSuccess,
		}
	default:
		return ProgressEvent{
			Message: fmt.Sprintf("Finished %s, %d of %d failed", report.Title, len(report.Failed), report.Total),
			Level:   LevelWarning,
		}
	}
}
