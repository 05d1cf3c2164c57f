// Package types contains common types used across the application
package types

import "time"

// State of a request result.
type State int

const (
	// Loading means the fetch has not resolved yet.
	Loading State = iota
	// Loaded means the fetch resolved with data.
	Loaded
	// Failed means the fetch resolved with an error.
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one page data fetch: Loading, Loaded(data) or Failed(reason).
// The zero value is Loading.
type Result[T any] struct {
	state     State
	data      T
	err       error
	fetchedAt time.Time
}

// Pending returns a Loading result.
func Pending[T any]() Result[T] { return Result[T]{state: Loading} }

// Ok returns a Loaded result.
func Ok[T any](data T, fetchedAt time.Time) Result[T] {
	return Result[T]{state: Loaded, data: data, fetchedAt: fetchedAt}
}

// Fail returns a Failed result. A nil err still yields Failed.
func Fail[T any](err error) Result[T] { return Result[T]{state: Failed, err: err} }

// State reports the result state.
func (r Result[T]) State() State { return r.state }

// IsLoading reports whether the fetch is unresolved.
func (r Result[T]) IsLoading() bool { return r.state == Loading }

// IsLoaded reports whether data is available.
func (r Result[T]) IsLoaded() bool { return r.state == Loaded }

// IsFailed reports whether the fetch failed.
func (r Result[T]) IsFailed() bool { return r.state == Failed }

// Data returns the payload and whether it is loaded.
func (r Result[T]) Data() (T, bool) { return r.data, r.state == Loaded }

// Value returns the payload, or the zero value when not loaded.
func (r Result[T]) Value() T { return r.data }

// Err returns the failure cause.
func (r Result[T]) Err() error { return r.err }

// Reason returns a printable failure reason, empty unless Failed.
func (r Result[T]) Reason() string {
	if r.state != Failed {
		return ""
	}
	if r.err == nil {
		return "request failed"
	}
	return r.err.Error()
}

// FetchedAt is when the data was fetched, zero unless Loaded.
func (r Result[T]) FetchedAt() time.Time { return r.fetchedAt }

// Map converts a Loaded payload, keeping Loading and Failed as is.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	switch r.state {
	case Loaded:
		return Ok(fn(r.data), r.fetchedAt)
	case Failed:
		return Fail[U](r.err)
	default:
		return Pending[U]()
	}
}
