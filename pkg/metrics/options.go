// Package metrics provides Prometheus metrics for the vitaldash portal.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace replaces the "vitaldash" prefix of every metric name.
// Empty keeps the default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithMetricsEnabled switches HTTP request recording on or off. Page,
// cache and session metrics are always recorded.
func WithMetricsEnabled(enabled bool) Option {
	return func(m *Manager) {
		m.enabled = enabled
	}
}

// WithRefreshInterval is how often cmd samples the runtime and session gauges.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithEnvironment adds an env constant label to every metric.
func WithEnvironment(env string) Option {
	return func(m *Manager) {
		if env == "" {
			return
		}
		labels := make(map[string]string, len(m.customLabels)+1)
		for k, v := range m.customLabels {
			labels[k] = v
		}
		labels["env"] = env
		m.customLabels = labels
	}
}

// WithPrometheusRegistry registers metrics on registry instead of the
// default registerer.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
