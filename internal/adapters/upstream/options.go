package upstream

import (
	"time"

	"github.com/okian/vitaldash/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithTimeout bounds each attempt of a request. A retried GET gets a fresh
// timeout per attempt, so the total can exceed it.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetry sets how often idempotent GETs are retried and the base wait between tries.
func WithRetry(count int, wait time.Duration) Option {
	return func(c *Client) {
		if count >= 0 {
			c.retryCount = count
		}
		if wait > 0 {
			c.retryWait = wait
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}
