package service

import (
	"context"
	"errors"
	"time"

	"github.com/okian/vitaldash/internal/adapters/upstream"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/internal/domain/types"
	"github.com/okian/vitaldash/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the data behind the landing page.
type Dashboard struct {
	Metrics types.Result[[]model.HealthMetricsSample]
	Risk    types.Result[model.RiskAssessment]
}

// Dashboard loads the metrics series and latest risk assessment concurrently.
func (s *Service) Dashboard(ctx context.Context, sess *model.Session) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.Metrics = load(gctx, s, sess, upstream.QueryHealthMetrics, s.api.HealthMetrics)
		return nil
	})
	g.Go(func() error {
		d.Risk = load(gctx, s, sess, upstream.QueryRiskAssessment, s.api.RiskAssessment)
		return nil
	})
	_ = g.Wait()
	return d, s.checkAuth(ctx, sess, d.Metrics.Err(), d.Risk.Err())
}

// HealthRecord loads the health record page.
func (s *Service) HealthRecord(ctx context.Context, sess *model.Session) (types.Result[model.HealthRecord], error) {
	r := load(ctx, s, sess, upstream.QueryHealthRecord, s.api.HealthRecord)
	return r, s.checkAuth(ctx, sess, r.Err())
}

// RiskAssessment loads the risk assessment page.
func (s *Service) RiskAssessment(ctx context.Context, sess *model.Session) (types.Result[model.RiskAssessment], error) {
	r := load(ctx, s, sess, upstream.QueryRiskAssessment, s.api.RiskAssessment)
	return r, s.checkAuth(ctx, sess, r.Err())
}

// InsurancePolicies loads the insurance policies page.
func (s *Service) InsurancePolicies(ctx context.Context, sess *model.Session) (types.Result[[]model.InsurancePolicy], error) {
	r := load(ctx, s, sess, upstream.QueryInsurancePolicies, s.api.InsurancePolicies)
	return r, s.checkAuth(ctx, sess, r.Err())
}

// PoliciesForExport waits for the policies without the page deadline.
func (s *Service) PoliciesForExport(ctx context.Context, sess *model.Session) ([]model.InsurancePolicy, error) {
	out := <-s.cache.Fetch(ctx, sess.ID, upstream.QueryInsurancePolicies, func(fctx context.Context) (any, error) {
		return s.api.InsurancePolicies(fctx, sess.AccessToken)
	})
	if out.Err != nil {
		if err := s.checkAuth(ctx, sess, out.Err); err != nil {
			return nil, err
		}
		return nil, out.Err
	}
	policies, _ := out.Value.([]model.InsurancePolicy)
	return policies, nil
}

// checkAuth expires the session when the API no longer accepts its token.
func (s *Service) checkAuth(ctx context.Context, sess *model.Session, errs ...error) error {
	for _, err := range errs {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return s.Expire(ctx, sess)
		}
	}
	return nil
}

// load fetches one logical query through the cache. It waits at most the
// page fetch timeout; after that the page renders Loading and the fetch
// completes in the background into the cache.
func load[T any](ctx context.Context, s *Service, sess *model.Session, name string, fetch func(context.Context, string) (T, error)) types.Result[T] {
	token := sess.AccessToken
	ch := s.cache.Fetch(ctx, sess.ID, name, func(fctx context.Context) (any, error) {
		return fetch(fctx, token)
	})

	timer := time.NewTimer(s.pageFetchTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.Err != nil {
			return types.Fail[T](out.Err)
		}
		v, _ := out.Value.(T)
		return types.Ok(v, out.FetchedAt)
	case <-timer.C:
		s.logger.Debug(ctx, "page data still loading", logger.String("query", name))
		return types.Pending[T]()
	case <-ctx.Done():
		return types.Fail[T](ctx.Err())
	}
}
