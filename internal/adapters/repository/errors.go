package repository

import "errors"

// Sentinel kinds for session store errors.
var (
	ErrNotFound       = errors.New("session not found")
	ErrExpired        = errors.New("session expired")
	ErrInvalidSession = errors.New("session must have an id")
	ErrUnknownBackend = errors.New("unknown session backend")
)
