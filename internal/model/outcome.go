package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an expected artifact cannot be located.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies a failed outcome.
type ErrorKind string

const (
	// KindTransient is any failure raised by the fetch capability.
	// Every transient failure is retried.
	KindTransient ErrorKind = "transient_fetch_failure"

	// KindRetryExhausted marks the final failure after all attempts were used.
	KindRetryExhausted ErrorKind = "retry_exhausted"

	// KindUnexpected is a defect inside per-item processing (a recovered panic).
	KindUnexpected ErrorKind = "unexpected_item_error"

	// KindRecordFailed means the fetch succeeded but the result could not be recorded.
	KindRecordFailed ErrorKind = "record_failed"

	// KindCancelled means the item was never started or was interrupted by cancellation.
	KindCancelled ErrorKind = "cancelled"
)

// Artifact describes the file produced by a successful fetch.
type Artifact struct {
	Path string
	Size int64
}

// FetchOutcome is the tagged result of one fetch invocation.
//
// Exactly one of the two variants is populated:
//   - Success: OK() is true, Artifact is set
//   - Failure: OK() is false, Kind and Message are set
//
// Use Succeeded and Failed to build values; the zero value is a Failure
// without a kind and should not be used.
type FetchOutcome struct {
	ok       bool
	Artifact Artifact
	Kind     ErrorKind
	Message  string
}

// Succeeded builds a Success outcome.
func Succeeded(a Artifact) FetchOutcome {
	return FetchOutcome{ok: true, Artifact: a}
}

// Failed builds a Failure outcome.
func Failed(kind ErrorKind, message string) FetchOutcome {
	return FetchOutcome{Kind: kind, Message: message}
}

// OK reports whether the outcome is a Success.
func (o FetchOutcome) OK() bool {
	return o.ok
}

// Err returns nil for a Success and a *FetchError for a Failure.
func (o FetchOutcome) Err() error {
	if o.ok {
		return nil
	}
	return &FetchError{Kind: o.Kind, Message: o.Message}
}

// WithKind returns a copy of a Failure outcome with a different kind.
// Success outcomes are returned unchanged.
func (o FetchOutcome) WithKind(kind ErrorKind) FetchOutcome {
	if o.ok {
		return o
	}
	o.Kind = kind
	return o
}

func (o FetchOutcome) String() string {
	if o.ok {
		return fmt.Sprintf("success(%s, %d bytes)", o.Artifact.Path, o.Artifact.Size)
	}
	return fmt.Sprintf("failure(%s: %s)", o.Kind, o.Message)
}

// FetchError exposes a Failure outcome as an error value.
type FetchError struct {
	Kind    ErrorKind
	Message string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
