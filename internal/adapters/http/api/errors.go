package api

import "errors"

// ErrNoStats is reported when the stats endpoint has no provider.
var ErrNoStats = errors.New("stats provider not configured")
