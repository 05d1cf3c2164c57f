package querycache

import "time"

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long an entry is served without refetching.
// A ttl <= 0 disables caching; concurrent fetches are still shared.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithMaxEntries bounds the number of entries across all sessions.
// If maxEntries > 0: bounded mode with oldest-first eviction.
// If maxEntries <= 0: unbounded mode.
func WithMaxEntries(maxEntries int) Option {
	return func(c *Cache) {
		c.maxEntries = maxEntries
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}
