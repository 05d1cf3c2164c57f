package queue

// Option applies a configuration option to the Queue.
type Option func(*Queue)

// WithCapacity sets how many jobs may wait for a worker.
func WithCapacity(capacity int) Option {
	return func(q *Queue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
