package retry

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/handiism/tubefetch/internal/model"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int

	// BaseBackoff is the wait before the first retry. Every following
	// retry waits twice as long as the previous one.
	BaseBackoff time.Duration
}

// Attempts returns the maximum number of invocations allowed by the policy.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// MaxBackoff caps the wait between two attempts.
const MaxBackoff = 10 * time.Minute

// Backoff returns the wait before retry attempt n (1-indexed):
// BaseBackoff * 2^(n-1), saturated at MaxBackoff.
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 || p.BaseBackoff <= 0 {
		return 0
	}
	d := min(p.BaseBackoff, MaxBackoff)
	for i := 1; i < n && d < MaxBackoff; i++ {
		d *= 2
	}
	return min(d, MaxBackoff)
}

// Operation is one attempt at producing an outcome.
type Operation func(ctx context.Context) model.FetchOutcome

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs an Operation under a Policy.
//
// Executor has no knowledge of concurrency; the backoff wait only blocks the
// goroutine that called Execute.
type Executor struct {
	policy Policy
	logger *slog.Logger
	sleep  SleepFunc
}

// Option customizes an Executor.
type Option func(*Executor)

// WithSleep replaces the wait between attempts. Tests use it to record
// backoff durations without sleeping.
func WithSleep(fn SleepFunc) Option {
	return func(e *Executor) {
		e.sleep = fn
	}
}

// NewExecutor creates an Executor. A nil logger discards all output.
func NewExecutor(policy Policy, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Executor{
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the policy the executor was built with.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Execute invokes op until it succeeds or the policy is exhausted and returns
// the final outcome together with the number of invocations.
//
// After the last failed attempt the last Failure is returned with its message
// intact and its kind set to model.KindRetryExhausted. If ctx is cancelled
// during a backoff wait, the last Failure is returned with kind
// model.KindCancelled.
func (e *Executor) Execute(ctx context.Context, id string, op Operation) (model.FetchOutcome, int) {
	maxAttempts := e.policy.Attempts()
	short := shortID(id)

	var outcome model.FetchOutcome
	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			e.logger.Info("retrying", "attempt", attempt, "max_attempts", maxAttempts, "item", short)
		}

		outcome = op(ctx)
		if outcome.OK() {
			return outcome, attempt
		}

		e.logger.Warn("attempt failed", "attempt", attempt, "item", short, "error", outcome.Message)

		if attempt >= maxAttempts {
			e.logger.Error("all attempts failed", "attempts", attempt, "item", id, "error", outcome.Message)
			return outcome.WithKind(model.KindRetryExhausted), attempt
		}

		wait := e.policy.Backoff(attempt)
		e.logger.Info("waiting before next attempt", "wait", wait, "item", short)
		if err := e.sleep(ctx, wait); err != nil {
			return outcome.WithKind(model.KindCancelled), attempt
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func shortID(id string) string {
	if len(id) <= 50 {
		return id
	}
	return id[:50] + "..."
}
