// Package metrics provides Prometheus metrics for the vitaldash portal.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the portal.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer
	gatherer         *prometheus.Registry

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Page Metrics - how pages resolve their data
	pageRenders *prometheus.CounterVec

	// Upstream Metrics - Healthcare Analytics API calls
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Query Cache Metrics
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheShared    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheEntries   prometheus.Gauge

	// Session Metrics
	sessionsActive prometheus.Gauge
	sessionsPurged prometheus.Counter

	// Prefetch Metrics
	prefetchJobs       *prometheus.CounterVec
	prefetchQueueDepth prometheus.Gauge
	prefetchLatency    prometheus.Histogram

	// Auth Metrics
	loginAttempts   *prometheus.CounterVec
	authTransitions *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec

	// Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var global atomic.Pointer[Manager] //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Initialize global metrics with defaults; cmd reconfigures them from config.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts and
// registered on a fresh registry, so it can be called more than once.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	m := NewManager(append(opts, WithPrometheusRegistry(registry))...)
	m.gatherer = registry
	global.Store(m)
}

func current() *Manager { return global.Load() }

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vitaldash",
		subsystem:        "portal",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.pageRenders = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "page_renders_total",
			Help:        "Pages rendered by page and data state (loading, loaded, failed)",
			ConstLabels: labels,
		},
		[]string{"page", "state"},
	)

	m.upstreamRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "upstream_requests_total",
			Help:        "Calls to the analytics API by logical query and outcome",
			ConstLabels: labels,
		},
		[]string{"query", "outcome"},
	)

	m.upstreamLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "upstream_latency_milliseconds",
			Help:        "Analytics API call latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"query"},
	)

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_hits_total",
		Help:        "Query cache lookups served from a fresh entry",
		ConstLabels: labels,
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_misses_total",
		Help:        "Query cache lookups that required an upstream fetch",
		ConstLabels: labels,
	})

	m.cacheShared = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_shared_fetches_total",
		Help:        "Fetches that joined an identical in-flight request",
		ConstLabels: labels,
	})

	m.cacheEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_evictions_total",
		Help:        "Query cache entries evicted to honor the size bound",
		ConstLabels: labels,
	})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_entries",
		Help:        "Current number of query cache entries",
		ConstLabels: labels,
	})

	m.sessionsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_active",
		Help:        "Current number of stored sessions",
		ConstLabels: labels,
	})

	m.sessionsPurged = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sessions_purged_total",
		Help:        "Expired sessions removed by the janitor",
		ConstLabels: labels,
	})

	m.loginAttempts = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "login_attempts_total",
			Help:        "Login attempts by result",
			ConstLabels: labels,
		},
		[]string{"result"},
	)

	m.authTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "auth_transitions_total",
			Help:        "Session auth state transitions",
			ConstLabels: labels,
		},
		[]string{"from", "to"},
	)

	m.prefetchJobs = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "prefetch_jobs_total",
			Help:        "Login prefetch jobs by result",
			ConstLabels: labels,
		},
		[]string{"result"},
	)

	m.prefetchQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "prefetch_queue_depth",
		Help:        "Prefetch jobs waiting for a worker",
		ConstLabels: labels,
	})

	m.prefetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "prefetch_duration_milliseconds",
		Help:        "Time spent warming the cache for one session",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.tokenRefreshes = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "token_refreshes_total",
			Help:        "Access token refresh attempts by result",
			ConstLabels: labels,
		},
		[]string{"result"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_type_total",
			Help:        "Total number of errors by type and severity",
			ConstLabels: labels,
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by endpoint",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "error_latency_milliseconds",
			Help:        "Latency of operations that resulted in errors",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	m := current()
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m := current()
	if !m.enabled {
		return
	}
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordPageRender counts a rendered page by the state of its data.
func RecordPageRender(page, state string) {
	current().pageRenders.WithLabelValues(page, state).Inc()
}

// RecordUpstreamRequest counts an analytics API call and its latency.
func RecordUpstreamRequest(query, outcome string, latencyMs float64) {
	current().upstreamRequests.WithLabelValues(query, outcome).Inc()
	current().upstreamLatency.WithLabelValues(query).Observe(latencyMs)
}

// Query Cache Metrics Functions.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { current().cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { current().cacheMisses.Inc() }

// RecordCacheShared increments the shared in-flight fetch counter.
func RecordCacheShared() { current().cacheShared.Inc() }

// RecordCacheEviction increments the eviction counter.
func RecordCacheEviction() { current().cacheEvictions.Inc() }

// UpdateCacheEntries sets the current number of cache entries.
func UpdateCacheEntries(count int) { current().cacheEntries.Set(float64(count)) }

// Session and Auth Metrics Functions.

// UpdateSessionsActive sets the number of stored sessions.
func UpdateSessionsActive(count int) { current().sessionsActive.Set(float64(count)) }

// RecordSessionsPurged adds to the purged sessions counter.
func RecordSessionsPurged(count int) { current().sessionsPurged.Add(float64(count)) }

// RecordLoginAttempt counts a login attempt by result (success, invalid, error).
func RecordLoginAttempt(result string) {
	current().loginAttempts.WithLabelValues(result).Inc()
}

// RecordAuthTransition counts an auth state machine transition.
func RecordAuthTransition(from, to string) {
	current().authTransitions.WithLabelValues(from, to).Inc()
}

// RecordTokenRefresh counts a token refresh attempt by result.
func RecordTokenRefresh(result string) {
	current().tokenRefreshes.WithLabelValues(result).Inc()
}

// Prefetch Metrics Functions.

// RecordPrefetchJob counts a prefetch job by result (queued, dropped, done, failed).
func RecordPrefetchJob(result string) {
	current().prefetchJobs.WithLabelValues(result).Inc()
}

// UpdatePrefetchQueueDepth sets the number of queued prefetch jobs.
func UpdatePrefetchQueueDepth(depth int) {
	current().prefetchQueueDepth.Set(float64(depth))
}

// RecordPrefetchLatency records how long a prefetch job took in milliseconds.
func RecordPrefetchLatency(latencyMs float64) {
	current().prefetchLatency.Observe(latencyMs)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	current().errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	current().errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	current().errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	current().errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	current().systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	current().systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	current().systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns how often gauge metrics should be refreshed.
func RefreshInterval() time.Duration {
	return current().refreshInterval
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return current().gatherer
}
