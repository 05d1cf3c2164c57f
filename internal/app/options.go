package service

import (
	"time"

	"github.com/okian/vitaldash/internal/adapters/querycache"
	"github.com/okian/vitaldash/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCache sets the page data cache.
func WithCache(c *querycache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithPageFetchTimeout sets how long a page waits for its data before
// rendering the loading state.
func WithPageFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pageFetchTimeout = d
		}
	}
}

// WithTokenRefreshWindow sets how long before expiry an access token is renewed.
func WithTokenRefreshWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshWindow = d
		}
	}
}

// WithJanitorInterval sets the expired session purge interval.
func WithJanitorInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.janitorInterval = d
		}
	}
}

// WithBackendName labels the session backend in stats.
func WithBackendName(name string) Option {
	return func(s *Service) {
		s.backend = name
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPrefetchWorkers sets how many workers warm the cache after a login.
// Zero disables prefetching.
func WithPrefetchWorkers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.prefetchWorkers = n
		}
	}
}

// WithPrefetchQueueSize bounds the number of logins waiting for a prefetch worker.
func WithPrefetchQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.prefetchQueueSize = n
		}
	}
}
