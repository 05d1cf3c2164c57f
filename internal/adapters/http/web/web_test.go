package web_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/vitaldash/internal/adapters/export"
	"github.com/okian/vitaldash/internal/adapters/http/web"
	"github.com/okian/vitaldash/internal/adapters/querycache"
	"github.com/okian/vitaldash/internal/adapters/repository"
	"github.com/okian/vitaldash/internal/adapters/upstream"
	service "github.com/okian/vitaldash/internal/app"
	"github.com/okian/vitaldash/internal/domain/auth"
	"github.com/okian/vitaldash/internal/domain/chart"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/internal/domain/types"
	"github.com/okian/vitaldash/internal/stubapi"
	"github.com/okian/vitaldash/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func ptr(v float64) *float64 { return &v }

// fakePortal keeps sessions in a map and serves page data in a fixed state.
type fakePortal struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	gone     map[string]bool
	seq      int

	state       types.State
	expire      bool
	exportErr   error
	registerErr error
	registered  []model.Registration
	record      model.HealthRecord
	risk        model.RiskAssessment
}

func newFakePortal() *fakePortal {
	return &fakePortal{
		sessions: make(map[string]*model.Session),
		gone:     make(map[string]bool),
		state:    types.Loaded,
		record:   sampleRecord,
		risk:     sampleRisk,
	}
}

func (f *fakePortal) nextID() string {
	f.seq++
	return "sess-" + strconv.Itoa(f.seq)
}

func (f *fakePortal) NewSession(context.Context) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess := &model.Session{ID: f.nextID(), State: model.AuthAnonymous}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakePortal) Session(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[id] {
		return nil, repository.ErrExpired
	}
	sess, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (f *fakePortal) Touch(_ context.Context, sess *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sess
	f.sessions[sess.ID] = &cp
	return nil
}

func (f *fakePortal) Login(_ context.Context, sess *model.Session, username, password string) (*model.Session, error) {
	if username == "" || password == "" {
		return sess, service.ErrMissingCredentials
	}
	if password != "secret" {
		return sess, &upstream.StatusError{Kind: upstream.ErrUnauthorized, Status: 401, Detail: "Incorrect email or password"}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sess.ID)
	rotated := &model.Session{ID: f.nextID(), State: model.AuthAuthenticated}
	rotated.Login(model.User{ID: 1, Email: username, FirstName: "Ada", LastName: "Lovelace"}, model.Token{AccessToken: "tok"}, time.Time{})
	f.sessions[rotated.ID] = rotated
	cp := *rotated
	return &cp, nil
}

func (f *fakePortal) Register(_ context.Context, reg model.Registration) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.registerErr != nil {
		return model.User{}, f.registerErr
	}
	f.registered = append(f.registered, reg)
	return model.User{ID: 2, Email: reg.Email}, nil
}

func (f *fakePortal) Logout(_ context.Context, sess *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sess.ID)
	sess.Logout()
	sess.State = model.AuthAnonymous
	return nil
}

func (f *fakePortal) EnsureFreshToken(context.Context, *model.Session) error { return nil }

func (f *fakePortal) set(fn func(*fakePortal)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakePortal) current() types.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakePortal) records() (model.HealthRecord, model.RiskAssessment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record, f.risk
}

func (f *fakePortal) registrations() []model.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Registration(nil), f.registered...)
}

func (f *fakePortal) outcome(sess *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expire {
		sess.State = model.AuthExpired
		return service.ErrSessionExpired
	}
	return nil
}

func result[T any](state types.State, v T) types.Result[T] {
	switch state {
	case types.Loaded:
		return types.Ok(v, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	case types.Failed:
		return types.Fail[T](errors.New("upstream error: status 502"))
	default:
		return types.Pending[T]()
	}
}

var (
	sampleMetrics = []model.HealthMetricsSample{
		{Date: "2024-01-01", BMI: ptr(24.1), BloodPressureSystolic: ptr(120), BloodPressureDiastolic: ptr(80), HeartRate: ptr(70)},
		{Date: "2024-02-01", BMI: ptr(24.6), BloodPressureSystolic: ptr(125), BloodPressureDiastolic: ptr(82), HeartRate: ptr(72)},
	}
	sampleRisk = model.RiskAssessment{
		ID: 1, OverallRiskScore: ptr(42), RiskLevel: "Moderate", CardiovascularRisk: ptr(38.5),
		RiskFactors: []string{"Elevated blood pressure"}, PredictionConfidence: ptr(0.87),
	}
	sampleRecord = model.HealthRecord{
		ID: 1, Height: ptr(172), Weight: ptr(70), BMI: ptr(23.7),
		BloodPressure:     &model.BloodPressure{Systolic: ptr(118), Diastolic: nil, Unit: "mmHg"},
		MedicalConditions: []string{"Asthma"},
		Medications:       []model.Medication{{Name: "Salbutamol", Dosage: "100mcg", Frequency: "as needed", StartDate: "2023-05-01"}},
	}
	samplePolicies = []model.InsurancePolicy{{
		ID: 1, PolicyNumber: "POL-1234", PolicyType: "Health", CoverageAmount: 250000, PremiumAmount: 320,
		StartDate: "2024-01-01", EndDate: "2024-12-31", RawStatus: "active",
		CoverageDetails: model.CoverageDetails{{Key: "hospitalization", Covered: true}, {Key: "dental", Covered: false}},
	}}
)

func (f *fakePortal) Dashboard(_ context.Context, sess *model.Session) (service.Dashboard, error) {
	if err := f.outcome(sess); err != nil {
		return service.Dashboard{}, err
	}
	_, risk := f.records()
	return service.Dashboard{
		Metrics: result(f.current(), sampleMetrics),
		Risk:    result(f.current(), risk),
	}, nil
}

func (f *fakePortal) HealthRecord(_ context.Context, sess *model.Session) (types.Result[model.HealthRecord], error) {
	record, _ := f.records()
	return result(f.current(), record), f.outcome(sess)
}

func (f *fakePortal) RiskAssessment(_ context.Context, sess *model.Session) (types.Result[model.RiskAssessment], error) {
	_, risk := f.records()
	return result(f.current(), risk), f.outcome(sess)
}

func (f *fakePortal) InsurancePolicies(_ context.Context, sess *model.Session) (types.Result[[]model.InsurancePolicy], error) {
	return result(f.current(), samplePolicies), f.outcome(sess)
}

func (f *fakePortal) PoliciesForExport(_ context.Context, sess *model.Session) ([]model.InsurancePolicy, error) {
	if err := f.outcome(sess); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.exportErr != nil {
		return nil, f.exportErr
	}
	return samplePolicies, nil
}

// client drives the handler while carrying the session cookie between requests.
type client struct {
	srv    *httptest.Server
	cookie *http.Cookie
}

func (c *client) do(method, path string, form url.Values) (*http.Response, string) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.srv.URL+path, body)
	So(err, ShouldBeNil)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	hc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := hc.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)

	for _, ck := range resp.Cookies() {
		if ck.Name != "vitaldash_session" {
			continue
		}
		if ck.MaxAge < 0 {
			c.cookie = nil
		} else {
			c.cookie = ck
		}
	}
	return resp, string(raw)
}

func (c *client) login() {
	resp, _ := c.do(http.MethodPost, web.PathLogin, url.Values{"username": {"ada@example.com"}, "password": {"secret"}})
	So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
	So(resp.Header.Get("Location"), ShouldEqual, web.PathDashboard)
}

func newTestServer(portal web.Portal) *httptest.Server {
	signer, err := auth.NewCookieSigner("test-secret", time.Hour)
	So(err, ShouldBeNil)
	h, err := web.New(portal, signer, web.WithSessionTTL(time.Hour))
	So(err, ShouldBeNil)
	mux := http.NewServeMux()
	h.Register(mux)
	return httptest.NewServer(mux)
}

func TestGuard(t *testing.T) {
	Convey("Given the portal without a session", t, func() {
		portal := newFakePortal()
		srv := newTestServer(portal)
		defer srv.Close()
		c := &client{srv: srv}

		Convey("Every protected page redirects to the login page", func() {
			for _, path := range []string{"/", web.PathHealthRecord, web.PathRiskAssessment, web.PathInsurancePolicies, web.PathPoliciesExport} {
				resp, _ := c.do(http.MethodGet, path, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
				So(resp.Header.Get("Location"), ShouldEqual, web.PathLogin)
			}
		})

		Convey("Unknown paths go home", func() {
			resp, _ := c.do(http.MethodGet, "/no/such/page", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
			So(resp.Header.Get("Location"), ShouldEqual, web.PathDashboard)
		})

		Convey("A forged cookie is treated as anonymous", func() {
			c.cookie = &http.Cookie{Name: "vitaldash_session", Value: "forged"}
			resp, _ := c.do(http.MethodGet, "/", nil)
			So(resp.Header.Get("Location"), ShouldEqual, web.PathLogin)
		})

		Convey("The login and register forms render", func() {
			resp, body := c.do(http.MethodGet, web.PathLogin, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Cache-Control"), ShouldEqual, "no-store")
			So(body, ShouldContainSubstring, `name="username"`)

			resp, body = c.do(http.MethodGet, web.PathRegister, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, `name="confirm_password"`)
		})
	})
}

func TestLoginFlow(t *testing.T) {
	Convey("Given the portal", t, func() {
		portal := newFakePortal()
		srv := newTestServer(portal)
		defer srv.Close()
		c := &client{srv: srv}

		Convey("When signing in with good credentials", func() {
			c.login()

			Convey("Then the dashboard renders for the user", func() {
				resp, body := c.do(http.MethodGet, "/", nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body, ShouldContainSubstring, "Ada Lovelace")
				So(body, ShouldContainSubstring, chart.Title)
				So(body, ShouldContainSubstring, "Elevated blood pressure")
				for _, rec := range web.Recommendations {
					So(body, ShouldContainSubstring, rec)
				}
			})

			Convey("Then the login page sends the user home", func() {
				resp, _ := c.do(http.MethodGet, web.PathLogin, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
				So(resp.Header.Get("Location"), ShouldEqual, web.PathDashboard)
			})

			Convey("Then logging out returns to the login page", func() {
				resp, _ := c.do(http.MethodPost, web.PathLogout, url.Values{})
				So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
				So(resp.Header.Get("Location"), ShouldEqual, web.PathLogin)
				So(c.cookie, ShouldBeNil)

				resp, _ = c.do(http.MethodGet, "/", nil)
				So(resp.Header.Get("Location"), ShouldEqual, web.PathLogin)
			})
		})

		Convey("When the password is wrong", func() {
			resp, body := c.do(http.MethodPost, web.PathLogin, url.Values{"username": {"ada@example.com"}, "password": {"nope"}})

			Convey("Then the form shows the API message and keeps the email", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
				So(body, ShouldContainSubstring, "Incorrect email or password")
				So(body, ShouldContainSubstring, "ada@example.com")
			})
		})

		Convey("When fields are missing", func() {
			resp, body := c.do(http.MethodPost, web.PathLogin, url.Values{"username": {"ada@example.com"}})

			Convey("Then the form asks for them", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body, ShouldContainSubstring, "Email and password are required.")
			})
		})

		Convey("When the stored session has expired", func() {
			c.login()
			portal.mu.Lock()
			for id := range portal.sessions {
				portal.gone[id] = true
			}
			portal.mu.Unlock()

			resp, _ := c.do(http.MethodGet, web.PathHealthRecord, nil)

			Convey("Then the user is told to sign in again", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
				So(resp.Header.Get("Location"), ShouldEqual, web.PathLogin+"?expired=1")

				_, body := c.do(http.MethodGet, web.PathLogin+"?expired=1", nil)
				So(body, ShouldContainSubstring, "Your session has expired. Please sign in again.")
			})
		})

		Convey("When the API stops accepting the token", func() {
			c.login()
			portal.set(func(p *fakePortal) { p.expire = true })

			resp, _ := c.do(http.MethodGet, "/", nil)

			Convey("Then the page redirects to the expired login", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
				So(resp.Header.Get("Location"), ShouldEqual, web.PathLogin+"?expired=1")
			})
		})
	})
}

func TestRegister(t *testing.T) {
	Convey("Given the registration form", t, func() {
		portal := newFakePortal()
		srv := newTestServer(portal)
		defer srv.Close()
		c := &client{srv: srv}

		form := url.Values{
			"email":            {"grace@example.com"},
			"first_name":       {"Grace"},
			"last_name":        {"Hopper"},
			"date_of_birth":    {"1906-12-09"},
			"gender":           {"female"},
			"phone_number":     {"555-0100"},
			"password":         {"cobol"},
			"confirm_password": {"cobol"},
		}

		Convey("A valid submission redirects to the login page", func() {
			resp, _ := c.do(http.MethodPost, web.PathRegister, form)
			So(resp.StatusCode, ShouldEqual, http.StatusSeeOther)
			So(resp.Header.Get("Location"), ShouldEqual, web.PathLogin+"?registered=1")
			regs := portal.registrations()
			So(len(regs), ShouldEqual, 1)
			So(regs[0].LastName, ShouldEqual, "Hopper")

			_, body := c.do(http.MethodGet, web.PathLogin+"?registered=1", nil)
			So(body, ShouldContainSubstring, "Registration successful. Please sign in.")
		})

		Convey("Mismatched passwords are refused", func() {
			form.Set("confirm_password", "fortran")
			resp, body := c.do(http.MethodPost, web.PathRegister, form)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body, ShouldContainSubstring, "Passwords do not match.")
			So(body, ShouldContainSubstring, "grace@example.com")
			So(portal.registrations(), ShouldBeEmpty)
		})

		Convey("A duplicate email shows the API message", func() {
			portal.set(func(p *fakePortal) {
				p.registerErr = &upstream.StatusError{Kind: upstream.ErrRejected, Status: 400, Detail: "Email already registered"}
			})
			resp, body := c.do(http.MethodPost, web.PathRegister, form)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(body, ShouldContainSubstring, "Email already registered")
		})

		Convey("An unreachable API is reported as unavailable", func() {
			portal.set(func(p *fakePortal) { p.registerErr = upstream.ErrTransport })
			resp, _ := c.do(http.MethodPost, web.PathRegister, form)
			So(resp.StatusCode, ShouldEqual, http.StatusBadGateway)
		})
	})
}

func TestPageStates(t *testing.T) {
	pages := []string{"/", web.PathHealthRecord, web.PathRiskAssessment, web.PathInsurancePolicies}

	Convey("Given a signed in user", t, func() {
		portal := newFakePortal()
		srv := newTestServer(portal)
		defer srv.Close()
		c := &client{srv: srv}
		c.login()

		Convey("When the data is loaded", func() {
			Convey("Then every page renders its values", func() {
				_, body := c.do(http.MethodGet, web.PathHealthRecord, nil)
				So(body, ShouldContainSubstring, "Salbutamol")
				So(body, ShouldContainSubstring, "Asthma")
				So(body, ShouldContainSubstring, "N/A")

				_, body = c.do(http.MethodGet, web.PathRiskAssessment, nil)
				So(body, ShouldContainSubstring, "Moderate")

				_, body = c.do(http.MethodGet, web.PathInsurancePolicies, nil)
				So(body, ShouldContainSubstring, "POL-1234")
				So(body, ShouldContainSubstring, "Download spreadsheet")
				So(body, ShouldContainSubstring, "Hospitalization")
			})

			Convey("Then an overweight BMI and a high risk level are coloured", func() {
				portal.set(func(p *fakePortal) {
					p.record = model.HealthRecord{ID: 2, BMI: ptr(27.3)}
					p.risk = model.RiskAssessment{ID: 2, OverallRiskScore: ptr(78), RiskLevel: "High"}
				})

				_, body := c.do(http.MethodGet, web.PathHealthRecord, nil)
				So(body, ShouldContainSubstring, `<p class="value text-orange-600">27.3 (Overweight)</p>`)

				_, body = c.do(http.MethodGet, web.PathRiskAssessment, nil)
				So(body, ShouldContainSubstring, `<p class="stat text-red-600">78</p>`)
				So(body, ShouldContainSubstring, "Risk Level: High")
			})

			Convey("Then the policy status badge follows the normalized status", func() {
				_, body := c.do(http.MethodGet, web.PathInsurancePolicies, nil)
				So(body, ShouldContainSubstring, `<span class="badge bg-green-100 text-green-800">active</span>`)
			})

			Convey("Then the policies download as a spreadsheet", func() {
				resp, body := c.do(http.MethodGet, web.PathPoliciesExport, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldEqual, export.ContentTypeXLSX)
				So(resp.Header.Get("Content-Disposition"), ShouldContainSubstring, "insurance-policies.xlsx")
				So(strings.HasPrefix(body, "PK"), ShouldBeTrue)
			})
		})

		Convey("When the data is still loading", func() {
			portal.set(func(p *fakePortal) { p.state = types.Loading })

			Convey("Then every page asks the browser to refresh", func() {
				for _, path := range pages {
					resp, body := c.do(http.MethodGet, path, nil)
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
					So(body, ShouldContainSubstring, `http-equiv="refresh"`)
					So(body, ShouldNotContainSubstring, "Download spreadsheet")
				}
			})

			Convey("Then every data field shows the placeholder", func() {
				_, body := c.do(http.MethodGet, "/", nil)
				So(body, ShouldContainSubstring, "Risk Level: N/A")
				So(body, ShouldContainSubstring, `<p class="stat text-indigo-600">N/A</p>`)
				So(body, ShouldContainSubstring, `<p class="stat text-red-600">N/A</p>`)
				So(body, ShouldContainSubstring, `<p class="stat text-green-600">N/A</p>`)
				So(body, ShouldContainSubstring, `<p class="stat text-blue-600">N/A/N/A</p>`)
				So(body, ShouldContainSubstring, "Cardiovascular Risk: N/A")
				So(body, ShouldContainSubstring, "chart-empty")
				So(body, ShouldNotContainSubstring, "Moderate")

				_, body = c.do(http.MethodGet, web.PathHealthRecord, nil)
				So(strings.Count(body, `<p class="value">N/A</p>`), ShouldEqual, 4)
				So(body, ShouldContainSubstring, "N/A (Unknown)")
				So(body, ShouldContainSubstring, "Last Updated: N/A")
				So(body, ShouldNotContainSubstring, "Salbutamol")
				So(body, ShouldNotContainSubstring, "Asthma")

				_, body = c.do(http.MethodGet, web.PathRiskAssessment, nil)
				So(body, ShouldContainSubstring, `<p class="stat text-gray-600">N/A</p>`)
				So(body, ShouldContainSubstring, "Risk Level: N/A")
				So(body, ShouldContainSubstring, "Model Version: N/A")
				So(body, ShouldNotContainSubstring, "Elevated blood pressure")

				_, body = c.do(http.MethodGet, web.PathInsurancePolicies, nil)
				So(body, ShouldNotContainSubstring, "POL-1234")
				So(body, ShouldNotContainSubstring, "No insurance policies on file.")
			})
		})

		Convey("When the data failed to load", func() {
			portal.set(func(p *fakePortal) { p.state = types.Failed })

			Convey("Then every page shows the failure", func() {
				for _, path := range pages {
					resp, body := c.do(http.MethodGet, path, nil)
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
					So(body, ShouldContainSubstring, "Could not load")
					So(body, ShouldContainSubstring, "status 502")
					So(body, ShouldNotContainSubstring, `http-equiv="refresh"`)
				}
			})

			Convey("Then the export reports a bad gateway", func() {
				portal.set(func(p *fakePortal) { p.exportErr = errors.New("upstream error: status 502") })
				resp, _ := c.do(http.MethodGet, web.PathPoliciesExport, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadGateway)
			})
		})
	})
}

func TestSessionFrom(t *testing.T) {
	Convey("Given a bare context", t, func() {
		sess := web.SessionFrom(context.Background())

		Convey("It yields an unsaved anonymous session", func() {
			So(sess, ShouldNotBeNil)
			So(sess.ID, ShouldBeEmpty)
			So(sess.State, ShouldEqual, model.AuthAnonymous)
			So(sess.Authenticated(), ShouldBeFalse)
		})

		Convey("It returns the session that was attached", func() {
			want := &model.Session{ID: "x", State: model.AuthExpired}
			So(web.SessionFrom(web.WithSession(context.Background(), want)), ShouldEqual, want)
		})
	})

	Convey("Given a nil mux", t, func() {
		signer, _ := auth.NewCookieSigner("k", time.Hour)
		h, err := web.New(newFakePortal(), signer)
		So(err, ShouldBeNil)
		So(func() { h.Register(nil) }, ShouldPanic)
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given the portal in front of the stub analytics API", t, func() {
		stub, err := stubapi.New(stubapi.WithUser(model.Registration{
			Email: "ada@example.com", Password: "secret", FirstName: "Ada", LastName: "Lovelace",
		}))
		So(err, ShouldBeNil)
		api := httptest.NewServer(stub.Handler())
		defer api.Close()

		svc := service.New(
			upstream.New(api.URL, upstream.WithRetry(0, 0)),
			repository.NewMemoryStore(),
			service.WithCache(querycache.New(querycache.WithTTL(time.Minute))),
			service.WithPageFetchTimeout(5*time.Second),
			service.WithPrefetchWorkers(0),
		)
		srv := newTestServer(svc)
		defer srv.Close()
		c := &client{srv: srv}

		Convey("A user can sign in and browse every page", func() {
			c.login()

			resp, body := c.do(http.MethodGet, "/", nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "Ada Lovelace")
			So(body, ShouldContainSubstring, "<polyline")

			for _, path := range []string{web.PathHealthRecord, web.PathRiskAssessment, web.PathInsurancePolicies} {
				resp, body = c.do(http.MethodGet, path, nil)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body, ShouldNotContainSubstring, "Could not load")
			}

			resp, _ = c.do(http.MethodGet, web.PathPoliciesExport, nil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(resp.Header.Get("Content-Type"), ShouldEqual, export.ContentTypeXLSX)
		})
	})
}
