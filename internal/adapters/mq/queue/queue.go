// Package queue holds prefetch jobs between a login and the workers that
// warm the page data cache for the new session.
//
// The queue is bounded and never blocks the producer: a login that finds
// it full simply goes without prefetching.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vitaldash/pkg/metrics"
)

const defaultCapacity = 256

// Job asks for the data of one freshly authenticated session.
type Job struct {
	SessionID  string
	Token      string
	EnqueuedAt time.Time
}

// Queue is a bounded in-memory job channel.
type Queue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
}

// New creates a queue.
func New(opts ...Option) *Queue {
	q := &Queue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	metrics.UpdatePrefetchQueueDepth(0)
	return q
}

// Enqueue adds a job without blocking. It returns ErrFull when every slot
// is taken and ErrClosed after Close.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordPrefetchJob("dropped")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordPrefetchJob("dropped")
		return err
	}

	select {
	case q.jobs <- job:
		metrics.RecordPrefetchJob("queued")
		metrics.UpdatePrefetchQueueDepth(len(q.jobs))
		return nil
	default:
		metrics.RecordPrefetchJob("dropped")
		metrics.RecordErrorByComponent("prefetch", "queue_full")
		return ErrFull
	}
}

// Jobs is the consumer side. It is closed by Close once drained.
func (q *Queue) Jobs() <-chan Job {
	return q.jobs
}

// Len reports the number of waiting jobs.
func (q *Queue) Len() int {
	n := len(q.jobs)
	metrics.UpdatePrefetchQueueDepth(n)
	return n
}

// Cap reports the queue capacity.
func (q *Queue) Cap() int { return q.capacity }

// Close stops accepting jobs. Safe to call more than once.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
