// Package worker runs a fixed pool of goroutines that consume prefetch
// jobs and hand each one to a Warmer.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vitaldash/internal/adapters/mq/queue"
	"github.com/okian/vitaldash/pkg/logger"
	"github.com/okian/vitaldash/pkg/metrics"
)

const (
	defaultWorkers    = 2
	defaultJobTimeout = 10 * time.Second
)

// Warmer loads everything a session is likely to ask for next.
type Warmer interface {
	Warm(ctx context.Context, job queue.Job) error
}

// Source is where workers receive jobs from.
type Source interface {
	Jobs() <-chan queue.Job
	Close() error
}

// Pool manages the prefetch workers.
type Pool struct {
	source     Source
	warmer     Warmer
	count      int
	name       string
	jobTimeout time.Duration

	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  atomic.Bool

	processed atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewPool creates a pool of count workers. A count below one uses the default.
func NewPool(count int, source Source, warmer Warmer, opts ...Option) *Pool {
	if count < 1 {
		count = defaultWorkers
	}
	p := &Pool{
		source:     source,
		warmer:     warmer,
		count:      count,
		name:       "prefetch",
		jobTimeout: defaultJobTimeout,
		shutdown:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named(p.name)
	}
	return p
}

// Start launches the workers. Calling it again is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.run(ctx, p.name+"-"+strconv.Itoa(i))
	}
	p.logger.Info(ctx, "prefetch workers started", logger.Int("workers", p.count))
}

func (p *Pool) run(ctx context.Context, name string) {
	defer p.wg.Done()

	jobs := p.source.Jobs()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			p.process(ctx, name, job)
		}
	}
}

func (p *Pool) process(ctx context.Context, name string, job queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordPrefetchLatency(float64(time.Since(start).Milliseconds()))
	}()

	jctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	if err := p.warmer.Warm(jctx, job); err != nil {
		p.failed.Add(1)
		metrics.RecordPrefetchJob("failed")
		metrics.RecordErrorByComponent("prefetch", "warm_error")
		p.logger.Debug(ctx, "prefetch incomplete",
			logger.String("worker", name),
			logger.Error(err),
		)
		return
	}
	p.processed.Add(1)
	metrics.RecordPrefetchJob("done")
}

// Processed reports how many jobs finished cleanly.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed reports how many jobs returned an error.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the source and waits for the workers to exit.
// Jobs still queued are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		if err := p.source.Close(); err != nil {
			p.logger.Error(ctx, "error closing prefetch queue", logger.Error(err))
		}
		close(p.shutdown)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "prefetch shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
