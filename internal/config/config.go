// Package config defines portal configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Durations are configured as integer milliseconds/seconds/minutes and
//   exposed through typed accessors.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
)

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text, json, tint.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the Healthcare Analytics API root, e.g. "http://localhost:8000".
	APIBaseURL string `koanf:"api_base_url"`

	// APITimeoutMS bounds a single upstream call.
	APITimeoutMS int `koanf:"api_timeout_ms"`

	// APIRetryCount and APIRetryWaitMS configure retries of idempotent upstream GETs.
	APIRetryCount  int `koanf:"api_retry_count"`
	APIRetryWaitMS int `koanf:"api_retry_wait_ms"`

	// PageFetchTimeoutMS is how long a page waits for its data before rendering the loading state.
	PageFetchTimeoutMS int `koanf:"page_fetch_timeout_ms"`

	// CacheTTLMS is how long fetched page data is served without refetching.
	CacheTTLMS int `koanf:"cache_ttl_ms"`

	// CacheSize bounds the number of cached page payloads across all sessions.
	CacheSize int `koanf:"cache_size"`

	// SessionBackend is one of memory, sqlite, redis.
	SessionBackend string `koanf:"session_backend"`

	// SessionTTLMinutes is the idle lifetime of a session.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	// SessionExpiredGraceMinutes keeps expired sessions readable so a returning
	// user is told their session expired rather than sent to a bare login.
	SessionExpiredGraceMinutes int `koanf:"session_expired_grace_minutes"`

	// SessionSQLitePath is the database file for the sqlite backend.
	SessionSQLitePath string `koanf:"session_sqlite_path"`

	// Redis connection for the redis backend.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// SessionCookieName names the session cookie.
	SessionCookieName string `koanf:"session_cookie_name"`

	// SessionSecret signs session cookies. Empty means a random per-process secret.
	SessionSecret string `koanf:"session_secret"`

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool `koanf:"cookie_secure"`

	// TokenRefreshWindowS starts an access token refresh this many seconds before expiry.
	TokenRefreshWindowS int `koanf:"token_refresh_window_s"`

	// JanitorIntervalS is how often expired sessions are purged.
	JanitorIntervalS int `koanf:"janitor_interval_s"`

	// PrefetchWorkers warm the page cache after a login. Zero disables prefetching.
	PrefetchWorkers int `koanf:"prefetch_workers"`

	// PrefetchQueueSize bounds the logins waiting for a prefetch worker.
	PrefetchQueueSize int `koanf:"prefetch_queue_size"`

	// MetricsNamespace prefixes every Prometheus metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsHTTP records per-request HTTP metrics.
	MetricsHTTP bool `koanf:"metrics_http"`

	// MetricsRefreshS is how often runtime and session gauges are sampled.
	MetricsRefreshS int `koanf:"metrics_refresh_s"`

	// Environment is attached to every metric as the env label when set.
	Environment string `koanf:"environment"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                   "info",
		LogFormat:                  "text",
		Addr:                       ":9080",
		APIBaseURL:                 "http://localhost:8000",
		APITimeoutMS:               5000,
		APIRetryCount:              2,
		APIRetryWaitMS:             200,
		PageFetchTimeoutMS:         1500,
		CacheTTLMS:                 30_000,
		CacheSize:                  10_000,
		SessionBackend:             SessionBackendMemory,
		SessionTTLMinutes:          60 * 24 * 8,
		SessionExpiredGraceMinutes: 60 * 24,
		SessionSQLitePath:          "./data/sessions.db",
		RedisAddr:                  "localhost:6379",
		SessionCookieName:          "vitaldash_session",
		TokenRefreshWindowS:        300,
		JanitorIntervalS:           60,
		PrefetchWorkers:            2,
		PrefetchQueueSize:          256,
		MetricsNamespace:           "vitaldash",
		MetricsHTTP:                true,
		MetricsRefreshS:            10,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.APIBaseURL) == "":
		return fmt.Errorf("%w: api_base_url must not be empty", ErrInvalidConfig)
	case c.APITimeoutMS <= 0:
		return fmt.Errorf("%w: api_timeout_ms must be positive", ErrInvalidConfig)
	case c.APIRetryCount < 0:
		return fmt.Errorf("%w: api_retry_count must not be negative", ErrInvalidConfig)
	case c.PageFetchTimeoutMS <= 0:
		return fmt.Errorf("%w: page_fetch_timeout_ms must be positive", ErrInvalidConfig)
	case c.SessionTTLMinutes <= 0:
		return fmt.Errorf("%w: session_ttl_minutes must be positive", ErrInvalidConfig)
	case c.SessionExpiredGraceMinutes < 0:
		return fmt.Errorf("%w: session_expired_grace_minutes must not be negative", ErrInvalidConfig)
	case strings.TrimSpace(c.SessionCookieName) == "":
		return fmt.Errorf("%w: session_cookie_name must not be empty", ErrInvalidConfig)
	case c.PrefetchWorkers < 0:
		return fmt.Errorf("%w: prefetch_workers must not be negative", ErrInvalidConfig)
	case c.PrefetchWorkers > 0 && c.PrefetchQueueSize <= 0:
		return fmt.Errorf("%w: prefetch_queue_size must be positive", ErrInvalidConfig)
	case !metricName.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	case c.MetricsRefreshS <= 0:
		return fmt.Errorf("%w: metrics_refresh_s must be positive", ErrInvalidConfig)
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendSQLite:
		if strings.TrimSpace(c.SessionSQLitePath) == "" {
			return fmt.Errorf("%w: session_sqlite_path is required for the sqlite backend", ErrInvalidConfig)
		}
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session_backend %q", ErrInvalidConfig, c.SessionBackend)
	}
	return nil
}

// APITimeout returns the upstream call timeout.
func (c *Config) APITimeout() time.Duration { return time.Duration(c.APITimeoutMS) * time.Millisecond }

// APIRetryWait returns the wait between upstream retries.
func (c *Config) APIRetryWait() time.Duration {
	return time.Duration(c.APIRetryWaitMS) * time.Millisecond
}

// PageFetchTimeout returns how long a page waits for data.
func (c *Config) PageFetchTimeout() time.Duration {
	return time.Duration(c.PageFetchTimeoutMS) * time.Millisecond
}

// CacheTTL returns the query cache freshness window.
func (c *Config) CacheTTL() time.Duration { return time.Duration(c.CacheTTLMS) * time.Millisecond }

// SessionTTL returns the session lifetime.
func (c *Config) SessionTTL() time.Duration { return time.Duration(c.SessionTTLMinutes) * time.Minute }

// SessionExpiredGrace returns how long expired sessions stay readable.
func (c *Config) SessionExpiredGrace() time.Duration {
	return time.Duration(c.SessionExpiredGraceMinutes) * time.Minute
}

// TokenRefreshWindow returns the proactive refresh window.
func (c *Config) TokenRefreshWindow() time.Duration {
	return time.Duration(c.TokenRefreshWindowS) * time.Second
}

// JanitorInterval returns the session purge interval.
func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.JanitorIntervalS) * time.Second
}

// MetricsRefresh returns the gauge sampling interval.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshS) * time.Second
}
