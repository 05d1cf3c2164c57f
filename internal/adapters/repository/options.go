package repository

import "time"

type settings struct {
	ttl       time.Duration
	grace     time.Duration
	now       func() time.Time
	keyPrefix string
	opTimeout time.Duration
}

func newSettings(opts []Option) settings {
	s := settings{
		ttl:       24 * time.Hour,
		grace:     24 * time.Hour,
		now:       time.Now,
		keyPrefix: "vitaldash:session:",
		opTimeout: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a session store.
type Option func(*settings)

// WithTTL sets the session lifetime applied on every Save.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithExpiredGrace keeps a session readable for grace after it expires, so
// Get reports ErrExpired instead of ErrNotFound until it is purged.
func WithExpiredGrace(grace time.Duration) Option {
	return func(s *settings) {
		if grace >= 0 {
			s.grace = grace
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithKeyPrefix sets the redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		s.keyPrefix = prefix
	}
}

// WithOpTimeout bounds a single redis command.
func WithOpTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.opTimeout = timeout
		}
	}
}
