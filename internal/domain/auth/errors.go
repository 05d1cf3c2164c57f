package auth

import "errors"

var (
	// ErrInvalidTransition is returned for an event the current state does not accept.
	ErrInvalidTransition = errors.New("invalid auth state transition")
	// ErrInvalidCookie is returned when a session cookie fails verification.
	ErrInvalidCookie = errors.New("invalid or expired session cookie")
	// ErrMalformedToken is returned when an access token cannot be parsed.
	ErrMalformedToken = errors.New("malformed access token")
)
