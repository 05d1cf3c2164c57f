package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/okian/vitaldash/internal/adapters/querycache"
	"github.com/okian/vitaldash/internal/adapters/repository"
	"github.com/okian/vitaldash/internal/adapters/upstream"
	service "github.com/okian/vitaldash/internal/app"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func ptr(v float64) *float64 { return &v }

func mint(exp time.Time) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ada@example.com", "exp": exp.Unix()})
	s, err := tok.SignedString([]byte("upstream"))
	if err != nil {
		panic(err)
	}
	return s
}

// fakeAPI is an in-memory API with switchable failures.
type fakeAPI struct {
	mu          sync.Mutex
	password    string
	tokenExpiry time.Time
	refreshErr  error
	dataErr     error
	delay       time.Duration
	calls       atomic.Int32
	refreshes   atomic.Int32
}

func (f *fakeAPI) data(ctx context.Context) error {
	f.calls.Add(1)
	f.mu.Lock()
	delay, err := f.delay, f.dataErr
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) HealthMetrics(ctx context.Context, _ string) ([]model.HealthMetricsSample, error) {
	if err := f.data(ctx); err != nil {
		return nil, err
	}
	return []model.HealthMetricsSample{{Date: "2024-01-01", BMI: ptr(24)}, {Date: "2024-02-01", BMI: ptr(25)}}, nil
}

func (f *fakeAPI) HealthRecord(ctx context.Context, _ string) (model.HealthRecord, error) {
	if err := f.data(ctx); err != nil {
		return model.HealthRecord{}, err
	}
	return model.HealthRecord{ID: 1, BMI: ptr(27.3)}, nil
}

func (f *fakeAPI) RiskAssessment(ctx context.Context, _ string) (model.RiskAssessment, error) {
	if err := f.data(ctx); err != nil {
		return model.RiskAssessment{}, err
	}
	return model.RiskAssessment{ID: 2, RiskLevel: "High", OverallRiskScore: ptr(70)}, nil
}

func (f *fakeAPI) InsurancePolicies(ctx context.Context, _ string) ([]model.InsurancePolicy, error) {
	if err := f.data(ctx); err != nil {
		return nil, err
	}
	return []model.InsurancePolicy{{ID: 1, PolicyNumber: "P-1", RawStatus: "active"}}, nil
}

func (f *fakeAPI) Login(_ context.Context, username, password string) (model.Token, error) {
	if password != f.password {
		return model.Token{}, &upstream.StatusError{Kind: upstream.ErrUnauthorized, Status: 401}
	}
	return model.Token{AccessToken: mint(f.tokenExpiry), TokenType: "bearer"}, nil
}

func (f *fakeAPI) Register(_ context.Context, reg model.Registration) (model.User, error) {
	return model.User{ID: 5, Email: reg.Email}, nil
}

func (f *fakeAPI) Refresh(_ context.Context, _ string) (model.Token, error) {
	f.refreshes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return model.Token{}, f.refreshErr
	}
	return model.Token{AccessToken: mint(f.tokenExpiry.Add(time.Hour)), TokenType: "bearer"}, nil
}

func (f *fakeAPI) Me(_ context.Context, _ string) (model.User, error) {
	return model.User{ID: 1, Email: "ada@example.com", FirstName: "Ada"}, nil
}

func newService(api *fakeAPI, now func() time.Time, opts ...service.Option) (*service.Service, repository.SessionStore) {
	store := repository.NewMemoryStore(repository.WithClock(now))
	opts = append([]service.Option{
		service.WithClock(now),
		service.WithPageFetchTimeout(time.Second),
		service.WithCache(querycache.New(querycache.WithTTL(time.Minute))),
	}, opts...)
	return service.New(api, store, opts...), store
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc, _ := newService(&fakeAPI{}, time.Now)
		ctx := context.Background()

		Convey("When starting and stopping it", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["sessionBackend"], ShouldEqual, "memory")
			So(stats["activeSessions"], ShouldEqual, 0)
			svc.Stop()
			svc.Stop()

			Convey("Then it reports stopped", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Login(t *testing.T) {
	Convey("Given an anonymous session", t, func() {
		now := time.Now()
		api := &fakeAPI{password: "secret", tokenExpiry: now.Add(time.Hour)}
		svc, store := newService(api, func() time.Time { return now })
		ctx := context.Background()

		sess, err := svc.NewSession(ctx)
		So(err, ShouldBeNil)
		So(sess.State, ShouldEqual, model.AuthAnonymous)

		Convey("When logging in with valid credentials", func() {
			logged, err := svc.Login(ctx, sess, "ada@example.com", "secret")

			Convey("Then the session is authenticated under a new id", func() {
				So(err, ShouldBeNil)
				So(logged.Authenticated(), ShouldBeTrue)
				So(logged.ID, ShouldNotEqual, sess.ID)
				So(logged.User.FirstName, ShouldEqual, "Ada")
				So(logged.TokenExpiry.Unix(), ShouldEqual, now.Add(time.Hour).Unix())

				_, err := store.Get(ctx, sess.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				stored, err := store.Get(ctx, logged.ID)
				So(err, ShouldBeNil)
				So(stored.State, ShouldEqual, model.AuthAuthenticated)
			})

			Convey("And logging out", func() {
				So(svc.Logout(ctx, logged), ShouldBeNil)

				Convey("Then the session is gone", func() {
					So(logged.User, ShouldBeNil)
					So(logged.State, ShouldEqual, model.AuthAnonymous)
					_, err := store.Get(ctx, logged.ID)
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				})
			})
		})

		Convey("When logging in with a wrong password", func() {
			same, err := svc.Login(ctx, sess, "ada@example.com", "wrong")

			Convey("Then the session stays anonymous", func() {
				So(errors.Is(err, upstream.ErrUnauthorized), ShouldBeTrue)
				So(same.ID, ShouldEqual, sess.ID)
				So(same.State, ShouldEqual, model.AuthAnonymous)
				So(same.Authenticated(), ShouldBeFalse)
			})
		})

		Convey("When credentials are missing", func() {
			_, err := svc.Login(ctx, sess, " ", "")
			So(errors.Is(err, service.ErrMissingCredentials), ShouldBeTrue)
		})

		Convey("When registering", func() {
			u, err := svc.Register(ctx, model.Registration{Email: "new@example.com", Password: "pw"})
			So(err, ShouldBeNil)
			So(u.ID, ShouldEqual, int64(5))

			_, err = svc.Register(ctx, model.Registration{Email: "new@example.com"})
			So(errors.Is(err, service.ErrMissingCredentials), ShouldBeTrue)
		})
	})
}

func TestService_TokenRefresh(t *testing.T) {
	Convey("Given an authenticated session", t, func() {
		base := time.Now()
		var offset atomic.Int64
		now := func() time.Time { return base.Add(time.Duration(offset.Load())) }
		api := &fakeAPI{password: "secret", tokenExpiry: base.Add(30 * time.Minute)}
		svc, _ := newService(api, now, service.WithTokenRefreshWindow(5*time.Minute))
		ctx := context.Background()

		anon, _ := svc.NewSession(ctx)
		sess, err := svc.Login(ctx, anon, "ada@example.com", "secret")
		So(err, ShouldBeNil)

		Convey("When the token is far from expiry", func() {
			So(svc.EnsureFreshToken(ctx, sess), ShouldBeNil)
			So(api.refreshes.Load(), ShouldEqual, int32(0))
		})

		Convey("When the token enters the refresh window", func() {
			offset.Store(int64(26 * time.Minute))
			err := svc.EnsureFreshToken(ctx, sess)

			Convey("Then it is renewed", func() {
				So(err, ShouldBeNil)
				So(api.refreshes.Load(), ShouldEqual, int32(1))
				So(sess.State, ShouldEqual, model.AuthAuthenticated)
				So(sess.TokenExpiry.After(base.Add(30*time.Minute)), ShouldBeTrue)
			})
		})

		Convey("When refresh fails but the token is still valid", func() {
			api.refreshErr = upstream.ErrTransport
			offset.Store(int64(26 * time.Minute))

			Convey("Then the session stays authenticated", func() {
				So(svc.EnsureFreshToken(ctx, sess), ShouldBeNil)
				So(sess.State, ShouldEqual, model.AuthAuthenticated)
			})
		})

		Convey("When refresh fails after the token expired", func() {
			api.refreshErr = &upstream.StatusError{Kind: upstream.ErrUnauthorized, Status: 401}
			offset.Store(int64(31 * time.Minute))
			err := svc.EnsureFreshToken(ctx, sess)

			Convey("Then the session expires", func() {
				So(errors.Is(err, service.ErrSessionExpired), ShouldBeTrue)
				So(sess.State, ShouldEqual, model.AuthExpired)
				So(sess.Authenticated(), ShouldBeFalse)
			})
		})

		Convey("When the session is anonymous", func() {
			So(errors.Is(svc.EnsureFreshToken(ctx, anon), service.ErrNotAuthenticated), ShouldBeTrue)
		})
	})
}

func TestService_Pages(t *testing.T) {
	Convey("Given an authenticated session", t, func() {
		api := &fakeAPI{password: "secret", tokenExpiry: time.Now().Add(time.Hour)}
		svc, _ := newService(api, time.Now, service.WithPageFetchTimeout(100*time.Millisecond))
		ctx := context.Background()
		anon, _ := svc.NewSession(ctx)
		sess, err := svc.Login(ctx, anon, "ada@example.com", "secret")
		So(err, ShouldBeNil)

		Convey("When the API answers promptly", func() {
			dash, err := svc.Dashboard(ctx, sess)
			So(err, ShouldBeNil)

			Convey("Then every page result is loaded", func() {
				So(dash.Metrics.IsLoaded(), ShouldBeTrue)
				So(len(dash.Metrics.Value()), ShouldEqual, 2)
				So(dash.Risk.IsLoaded(), ShouldBeTrue)
				So(dash.Risk.Value().RiskLevel, ShouldEqual, "High")

				rec, err := svc.HealthRecord(ctx, sess)
				So(err, ShouldBeNil)
				So(*rec.Value().BMI, ShouldEqual, 27.3)

				risk, _ := svc.RiskAssessment(ctx, sess)
				So(risk.IsLoaded(), ShouldBeTrue)

				policies, _ := svc.InsurancePolicies(ctx, sess)
				So(policies.Value()[0].PolicyNumber, ShouldEqual, "P-1")

				exported, err := svc.PoliciesForExport(ctx, sess)
				So(err, ShouldBeNil)
				So(len(exported), ShouldEqual, 1)
			})

			Convey("Then repeated loads are served from the cache", func() {
				before := api.calls.Load()
				_, _ = svc.RiskAssessment(ctx, sess)
				So(api.calls.Load(), ShouldEqual, before)
			})
		})

		Convey("When the API is slower than the page deadline", func() {
			api.mu.Lock()
			api.delay = 300 * time.Millisecond
			api.mu.Unlock()

			rec, err := svc.HealthRecord(ctx, sess)

			Convey("Then the page is loading and the fetch lands in the cache", func() {
				So(err, ShouldBeNil)
				So(rec.IsLoading(), ShouldBeTrue)

				time.Sleep(400 * time.Millisecond)
				api.mu.Lock()
				api.delay = 0
				api.mu.Unlock()
				before := api.calls.Load()

				rec, err = svc.HealthRecord(ctx, sess)
				So(err, ShouldBeNil)
				So(rec.IsLoaded(), ShouldBeTrue)
				So(api.calls.Load(), ShouldEqual, before)
			})
		})

		Convey("When the API fails", func() {
			api.mu.Lock()
			api.dataErr = &upstream.StatusError{Kind: upstream.ErrUpstream, Status: 502}
			api.mu.Unlock()

			rec, err := svc.HealthRecord(ctx, sess)

			Convey("Then the result carries the failure", func() {
				So(err, ShouldBeNil)
				So(rec.IsFailed(), ShouldBeTrue)
				So(rec.Reason(), ShouldContainSubstring, "502")
				So(sess.Authenticated(), ShouldBeTrue)
			})
		})

		Convey("When the API rejects the token", func() {
			api.mu.Lock()
			api.dataErr = &upstream.StatusError{Kind: upstream.ErrUnauthorized, Status: 401}
			api.mu.Unlock()

			_, err := svc.Dashboard(ctx, sess)

			Convey("Then the session expires", func() {
				So(errors.Is(err, service.ErrSessionExpired), ShouldBeTrue)
				So(sess.State, ShouldEqual, model.AuthExpired)

				_, err := svc.PoliciesForExport(ctx, sess)
				So(errors.Is(err, service.ErrSessionExpired), ShouldBeTrue)
			})
		})
	})
}

func TestService_Prefetch(t *testing.T) {
	Convey("Given a started service with prefetch workers", t, func() {
		api := &fakeAPI{password: "secret", tokenExpiry: time.Now().Add(time.Hour)}
		svc, _ := newService(api, time.Now, service.WithPrefetchWorkers(1), service.WithPrefetchQueueSize(4))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		anon, _ := svc.NewSession(ctx)
		sess, err := svc.Login(ctx, anon, "ada@example.com", "secret")
		So(err, ShouldBeNil)

		Convey("When the workers have caught up", func() {
			deadline := time.Now().Add(2 * time.Second)
			for api.calls.Load() < 4 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(api.calls.Load(), ShouldEqual, int32(4))
			for svc.GetStats(ctx)["prefetchDone"] != int64(1) && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}

			Convey("Then every page is served from the cache", func() {
				dash, err := svc.Dashboard(ctx, sess)
				So(err, ShouldBeNil)
				So(dash.Metrics.IsLoaded(), ShouldBeTrue)
				rec, _ := svc.HealthRecord(ctx, sess)
				So(rec.IsLoaded(), ShouldBeTrue)
				policies, _ := svc.InsurancePolicies(ctx, sess)
				So(policies.IsLoaded(), ShouldBeTrue)
				So(api.calls.Load(), ShouldEqual, int32(4))
				So(svc.GetStats(ctx)["prefetchDone"], ShouldEqual, int64(1))
			})
		})
	})

	Convey("Given a service with prefetching disabled", t, func() {
		api := &fakeAPI{password: "secret", tokenExpiry: time.Now().Add(time.Hour)}
		svc, _ := newService(api, time.Now, service.WithPrefetchWorkers(0))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		anon, _ := svc.NewSession(ctx)
		_, err := svc.Login(ctx, anon, "ada@example.com", "secret")
		So(err, ShouldBeNil)

		Convey("Then login does not touch the data endpoints", func() {
			time.Sleep(50 * time.Millisecond)
			So(api.calls.Load(), ShouldEqual, int32(0))
			_, ok := svc.GetStats(ctx)["prefetchDone"]
			So(ok, ShouldBeFalse)
		})
	})
}
