package upstream

import (
	"errors"
	"fmt"
)

// Sentinel kinds for upstream errors.
var (
	ErrUnauthorized = errors.New("upstream rejected credentials")
	ErrNotFound     = errors.New("upstream resource not found")
	ErrRejected     = errors.New("upstream rejected request")
	ErrUpstream     = errors.New("upstream error")
	ErrDecode       = errors.New("upstream response could not be decoded")
	ErrTransport    = errors.New("upstream unreachable")
)

// StatusError is a non-2xx response. It unwraps to one of the sentinel kinds.
type StatusError struct {
	Kind   error
	Status int
	// Detail is the API's error message, if it sent one.
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: status %d: %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%v: status %d", e.Kind, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// Detail returns the API's error message carried by err, if any.
func Detail(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}

// Outcome names an error kind for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
