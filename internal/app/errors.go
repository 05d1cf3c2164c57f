package service

import "errors"

var (
	// ErrSessionExpired is returned when an access token could not be renewed.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotAuthenticated is returned when an operation needs a logged in session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMissingCredentials is returned for an empty username or password.
	ErrMissingCredentials = errors.New("username and password are required")
)
