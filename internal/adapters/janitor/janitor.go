// Package janitor periodically purges expired sessions.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vitaldash/internal/adapters/repository"
	"github.com/okian/vitaldash/pkg/logger"
	"github.com/okian/vitaldash/pkg/metrics"
)

// Janitor runs PurgeExpired on a ticker and publishes the session count.
type Janitor struct {
	store    repository.SessionStore
	interval time.Duration
	logger   logger.Logger
	now      func() time.Time
	// onPurge is told how many sessions went away.
	onPurge func(n int)

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// Option applies a configuration option to the Janitor.
type Option func(*Janitor)

// WithInterval sets the purge interval.
func WithInterval(d time.Duration) Option {
	return func(j *Janitor) {
		if d > 0 {
			j.interval = d
		}
	}
}

// WithLogger sets the janitor logger.
func WithLogger(l logger.Logger) Option {
	return func(j *Janitor) { j.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(j *Janitor) { j.now = now }
}

// WithOnPurge registers a callback run after each sweep that removed sessions.
func WithOnPurge(fn func(n int)) Option {
	return func(j *Janitor) { j.onPurge = fn }
}

// New creates a janitor for store.
func New(store repository.SessionStore, opts ...Option) *Janitor {
	j := &Janitor{
		store:    store,
		interval: time.Minute,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = logger.Named("janitor")
	}
	return j
}

// Start launches the background sweep. It stops on Stop or ctx cancellation.
func (j *Janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.Sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stopChan:
				return
			case <-ticker.C:
				j.Sweep(ctx)
			}
		}
	}()
}

// Sweep purges once and returns how many sessions were removed.
func (j *Janitor) Sweep(ctx context.Context) int {
	n, err := j.store.PurgeExpired(ctx, j.now())
	if err != nil {
		metrics.RecordErrorByComponent("janitor", "purge")
		j.logger.Warn(ctx, "session purge failed", logger.Error(err))
	}
	if n > 0 {
		metrics.RecordSessionsPurged(n)
		j.logger.Info(ctx, "purged expired sessions", logger.Int("count", n))
		if j.onPurge != nil {
			j.onPurge(n)
		}
	}

	if count, err := j.store.Count(ctx); err == nil {
		metrics.UpdateSessionsActive(count)
	}
	return n
}

// Stop halts the sweep and waits for it to exit.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	j.wg.Wait()
}
