package download

import (
	"context"
	"errors"

	"github.com/handiism/tubefetch/internal/model"
)

// Resolver turns a user supplied reference into work items.
// It fails with *model.ResolutionError when the reference cannot be classified.
type Resolver interface {
	Resolve(ctx context.Context, reference string) (model.ResolvedTarget, error)
}

// Fetcher transfers one item and returns the produced artifact.
// Any error it returns is treated as transient and retried.
type Fetcher interface {
	Fetch(ctx context.Context, item model.WorkItem) (model.Artifact, error)
}

// Recorder persists a successful item. Implementations must be safe for
// concurrent use and must not lose a record once Record returned nil.
type Recorder interface {
	Record(ctx context.Context, item model.WorkItem, outcome model.FetchOutcome) error
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, reference string) (model.ResolvedTarget, error)

func (f ResolverFunc) Resolve(ctx context.Context, reference string) (model.ResolvedTarget, error) {
	return f(ctx, reference)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, item model.WorkItem) (model.Artifact, error)

func (f FetcherFunc) Fetch(ctx context.Context, item model.WorkItem) (model.Artifact, error) {
	return f(ctx, item)
}

// MultiRecorder forwards every record to each recorder in order.
// All recorders are called; their errors are joined.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, item model.WorkItem, outcome model.FetchOutcome) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, item, outcome); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
