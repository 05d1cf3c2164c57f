package service

import (
	"context"
	"errors"

	"github.com/okian/vitaldash/internal/adapters/mq/queue"
	"github.com/okian/vitaldash/internal/adapters/upstream"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// schedulePrefetch queues a cache warm-up for a session that just logged in.
// A full or stopped queue only means the first page loads cold.
func (s *Service) schedulePrefetch(ctx context.Context, sess *model.Session) {
	s.mu.RLock()
	q := s.prefetch
	s.mu.RUnlock()
	if q == nil {
		return
	}

	job := queue.Job{SessionID: sess.ID, Token: sess.AccessToken, EnqueuedAt: s.now()}
	if err := q.Enqueue(ctx, job); err != nil {
		s.logger.Debug(ctx, "prefetch skipped", logger.Error(err))
	}
}

// Warm loads every page query of a session into the cache.
func (s *Service) Warm(ctx context.Context, job queue.Job) error {
	g, gctx := errgroup.WithContext(ctx)
	warm := func(name string, fetch func(context.Context, string) (any, error)) {
		g.Go(func() error {
			select {
			case out := <-s.cache.Fetch(gctx, job.SessionID, name, func(fctx context.Context) (any, error) {
				return fetch(fctx, job.Token)
			}):
				return out.Err
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	warm(upstream.QueryHealthMetrics, erase(s.api.HealthMetrics))
	warm(upstream.QueryHealthRecord, erase(s.api.HealthRecord))
	warm(upstream.QueryRiskAssessment, erase(s.api.RiskAssessment))
	warm(upstream.QueryInsurancePolicies, erase(s.api.InsurancePolicies))

	err := g.Wait()
	if errors.Is(err, upstream.ErrUnauthorized) {
		// The next page request notices and expires the session.
		return nil
	}
	return err
}

func erase[T any](fetch func(context.Context, string) (T, error)) func(context.Context, string) (any, error) {
	return func(ctx context.Context, token string) (any, error) {
		return fetch(ctx, token)
	}
}
