package stubapi

import "errors"

var (
	// ErrEmailTaken is returned when registering an email twice.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBadCredentials is returned for an unknown email or wrong password.
	ErrBadCredentials = errors.New("incorrect email or password")
	// ErrInvalidToken is returned for a missing, expired or foreign bearer token.
	ErrInvalidToken = errors.New("could not validate credentials")
)
