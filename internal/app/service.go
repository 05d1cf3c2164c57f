// Package service provides the portal's session, authentication and page
// data operations used by the HTTP adapters.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/vitaldash/internal/adapters/janitor"
	"github.com/okian/vitaldash/internal/adapters/mq/queue"
	"github.com/okian/vitaldash/internal/adapters/mq/worker"
	"github.com/okian/vitaldash/internal/adapters/querycache"
	"github.com/okian/vitaldash/internal/adapters/repository"
	"github.com/okian/vitaldash/internal/adapters/upstream"
	"github.com/okian/vitaldash/internal/domain/auth"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/pkg/logger"
	"github.com/okian/vitaldash/pkg/metrics"
)

// API is the Healthcare Analytics API as seen by the service.
type API interface {
	HealthMetrics(ctx context.Context, token string) ([]model.HealthMetricsSample, error)
	HealthRecord(ctx context.Context, token string) (model.HealthRecord, error)
	RiskAssessment(ctx context.Context, token string) (model.RiskAssessment, error)
	InsurancePolicies(ctx context.Context, token string) ([]model.InsurancePolicy, error)
	Login(ctx context.Context, username, password string) (model.Token, error)
	Register(ctx context.Context, reg model.Registration) (model.User, error)
	Refresh(ctx context.Context, token string) (model.Token, error)
	Me(ctx context.Context, token string) (model.User, error)
}

// Service owns sessions and loads page data on their behalf.
type Service struct {
	mu sync.RWMutex

	// Core components
	api      API
	sessions repository.SessionStore
	cache    *querycache.Cache
	janitor  *janitor.Janitor
	prefetch *queue.Queue
	pool     *worker.Pool

	// Configuration
	pageFetchTimeout time.Duration
	refreshWindow    time.Duration
	janitorInterval  time.Duration
	backend          string

	// Prefetch
	prefetchWorkers   int
	prefetchQueueSize int

	// State
	started   bool
	startedAt time.Time

	logger logger.Logger
	now    func() time.Time
}

// New constructs a Service over the API client and session store.
func New(api API, sessions repository.SessionStore, opts ...Option) *Service {
	s := &Service{
		api:               api,
		sessions:          sessions,
		pageFetchTimeout:  1500 * time.Millisecond,
		refreshWindow:     5 * time.Minute,
		janitorInterval:   time.Minute,
		backend:           "memory",
		prefetchWorkers:   2,
		prefetchQueueSize: 256,
		now:               time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		s.cache = querycache.New()
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	return s
}

// Start launches background maintenance.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.janitor = janitor.New(s.sessions,
		janitor.WithInterval(s.janitorInterval),
		janitor.WithClock(s.now),
		janitor.WithLogger(s.logger.Named("janitor")),
	)
	s.janitor.Start(ctx)

	if s.prefetchWorkers > 0 {
		s.prefetch = queue.New(queue.WithCapacity(s.prefetchQueueSize))
		s.pool = worker.NewPool(s.prefetchWorkers, s.prefetch, s,
			worker.WithJobTimeout(s.pageFetchTimeout*4),
			worker.WithLogger(s.logger.Named("prefetch")),
		)
		s.pool.Start(ctx)
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "portal service started",
		logger.String("sessionBackend", s.backend),
		logger.Duration("pageFetchTimeout", s.pageFetchTimeout),
		logger.Duration("janitorInterval", s.janitorInterval),
		logger.Int("prefetchWorkers", s.prefetchWorkers),
	)
	return nil
}

// Stop halts background maintenance and closes the session store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping portal service...")
	if s.pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "prefetch workers did not stop in time", logger.Error(err))
		}
		cancel()
		s.pool, s.prefetch = nil, nil
	}
	if s.janitor != nil {
		s.janitor.Stop()
	}
	if err := s.sessions.Close(); err != nil {
		s.logger.Warn(context.Background(), "failed to close session store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "portal service stopped")
}

// NewSession creates and stores an anonymous session.
func (s *Service) NewSession(ctx context.Context) (*model.Session, error) {
	sess := &model.Session{ID: uuid.NewString(), State: model.AuthAnonymous}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Session loads a stored session. Unknown and expired ids return the
// repository sentinel errors.
func (s *Service) Session(ctx context.Context, id string) (*model.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Touch persists a session, sliding its expiry.
func (s *Service) Touch(ctx context.Context, sess *model.Session) error {
	return s.sessions.Save(ctx, sess)
}

// Login authenticates against the API and stores the user in the session.
// The session id is rotated on success; the returned session replaces sess.
func (s *Service) Login(ctx context.Context, sess *model.Session, username, password string) (*model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.RecordLoginAttempt("invalid")
		return sess, ErrMissingCredentials
	}

	if err := s.transition(ctx, sess, auth.EventSubmit); err != nil {
		return sess, err
	}

	token, err := s.api.Login(ctx, username, password)
	if err != nil {
		result := "error"
		if errors.Is(err, upstream.ErrUnauthorized) || errors.Is(err, upstream.ErrRejected) {
			result = "invalid"
		}
		metrics.RecordLoginAttempt(result)
		_ = s.transition(ctx, sess, auth.EventFail)
		if saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
			s.logger.Warn(ctx, "failed to save session", logger.Error(saveErr))
		}
		return sess, err
	}

	expiry, err := auth.TokenExpiry(token.AccessToken)
	if err != nil {
		// Opaque tokens are accepted; they are never refreshed proactively.
		s.logger.Debug(ctx, "access token carries no readable expiry", logger.Error(err))
	}

	user, err := s.api.Me(ctx, token.AccessToken)
	if err != nil {
		s.logger.Warn(ctx, "failed to load profile, using login name", logger.Error(err))
		user = model.User{Email: username}
	}

	rotated := &model.Session{ID: uuid.NewString(), State: sess.State}
	rotated.Login(user, token, expiry)
	if err := s.transition(ctx, rotated, auth.EventSucceed); err != nil {
		return sess, err
	}
	if err := s.sessions.Save(ctx, rotated); err != nil {
		return sess, fmt.Errorf("save session: %w", err)
	}
	s.discard(ctx, sess.ID)

	metrics.RecordLoginAttempt("success")
	s.logger.Info(ctx, "user logged in", logger.Int("userID", int(user.ID)))
	s.schedulePrefetch(ctx, rotated)
	return rotated, nil
}

// Register creates an account upstream.
func (s *Service) Register(ctx context.Context, reg model.Registration) (model.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Email == "" || reg.Password == "" {
		return model.User{}, ErrMissingCredentials
	}
	user, err := s.api.Register(ctx, reg)
	if err != nil {
		return model.User{}, err
	}
	s.logger.Info(ctx, "user registered", logger.Int("userID", int(user.ID)))
	return user, nil
}

// Logout clears the session and everything cached for it.
func (s *Service) Logout(ctx context.Context, sess *model.Session) error {
	if sess == nil {
		return nil
	}
	if err := s.transition(ctx, sess, auth.EventLogout); err != nil {
		return err
	}
	s.discard(ctx, sess.ID)
	return nil
}

// discard drops a session and its cached data.
func (s *Service) discard(ctx context.Context, id string) {
	s.cache.InvalidateSession(id)
	if err := s.sessions.Delete(ctx, id); err != nil {
		s.logger.Warn(ctx, "failed to delete session", logger.Error(err))
	}
}

// EnsureFreshToken renews the access token when it is within the refresh
// window. If renewal fails the session moves to expired and
// ErrSessionExpired is returned.
func (s *Service) EnsureFreshToken(ctx context.Context, sess *model.Session) error {
	if !sess.Authenticated() {
		return ErrNotAuthenticated
	}
	now := s.now()
	if !auth.NeedsRefresh(sess.TokenExpiry, now, s.refreshWindow) {
		return nil
	}

	token, err := s.api.Refresh(ctx, sess.AccessToken)
	if err == nil && token.AccessToken != "" {
		expiry, expErr := auth.TokenExpiry(token.AccessToken)
		if expErr == nil && (expiry.IsZero() || expiry.After(now)) {
			sess.Login(*sess.User, token, expiry)
			if err := s.transition(ctx, sess, auth.EventRefresh); err != nil {
				return err
			}
			metrics.RecordTokenRefresh("success")
			return s.sessions.Save(ctx, sess)
		}
		err = errors.Join(auth.ErrMalformedToken, expErr)
	}

	if now.Before(sess.TokenExpiry) {
		// The current token is still valid; try again on the next request.
		metrics.RecordTokenRefresh("deferred")
		s.logger.Warn(ctx, "token refresh failed, current token still valid", logger.Error(err))
		return nil
	}

	metrics.RecordTokenRefresh("failure")
	s.logger.Info(ctx, "token refresh failed, session expired", logger.Error(err))
	return s.Expire(ctx, sess)
}

// Expire moves an authenticated session to expired and returns ErrSessionExpired.
func (s *Service) Expire(ctx context.Context, sess *model.Session) error {
	if sess.State == model.AuthExpired {
		return ErrSessionExpired
	}
	if err := s.transition(ctx, sess, auth.EventExpire); err != nil {
		return err
	}
	s.cache.InvalidateSession(sess.ID)
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.Warn(ctx, "failed to save session", logger.Error(err))
	}
	return ErrSessionExpired
}

func (s *Service) transition(ctx context.Context, sess *model.Session, ev auth.Event) error {
	from, to, err := auth.Apply(sess, ev)
	if err != nil {
		s.logger.Warn(ctx, "rejected auth transition",
			logger.String("from", string(from)),
			logger.String("event", string(ev)),
		)
		return err
	}
	metrics.RecordAuthTransition(string(from), string(to))
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"sessionBackend": s.backend,
		"cacheEntries":   s.cache.Len(),
	}
	if s.prefetch != nil {
		stats["prefetchQueued"] = s.prefetch.Len()
		stats["prefetchDone"] = s.pool.Processed()
		stats["prefetchFailed"] = s.pool.Failed()
	}
	if s.started {
		stats["startedAt"] = s.startedAt.UTC().Format(time.RFC3339)
	}
	if base, ok := s.api.(interface{ BaseURL() string }); ok {
		stats["upstream"] = base.BaseURL()
	}

	if n, err := s.sessions.Count(ctx); err == nil {
		stats["activeSessions"] = n
		metrics.UpdateSessionsActive(n)
	}
	metrics.UpdateCacheEntries(s.cache.Len())

	return stats
}
