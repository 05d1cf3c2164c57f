// Package web renders the portal pages and owns the session cookie.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/okian/vitaldash/internal/adapters/http/api"
	"github.com/okian/vitaldash/internal/adapters/repository"
	service "github.com/okian/vitaldash/internal/app"
	"github.com/okian/vitaldash/internal/domain/auth"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/internal/domain/types"
	"github.com/okian/vitaldash/pkg/logger"
)

// Route paths.
const (
	PathDashboard         = "/"
	PathHealthRecord      = "/health-record"
	PathRiskAssessment    = "/risk-assessment"
	PathInsurancePolicies = "/insurance-policies"
	PathPoliciesExport    = "/insurance-policies/export.xlsx"
	PathLogin             = "/login"
	PathRegister          = "/register"
	PathLogout            = "/logout"
)

// Portal is the service surface the pages need.
type Portal interface {
	NewSession(ctx context.Context) (*model.Session, error)
	Session(ctx context.Context, id string) (*model.Session, error)
	Touch(ctx context.Context, sess *model.Session) error
	Login(ctx context.Context, sess *model.Session, username, password string) (*model.Session, error)
	Register(ctx context.Context, reg model.Registration) (model.User, error)
	Logout(ctx context.Context, sess *model.Session) error
	EnsureFreshToken(ctx context.Context, sess *model.Session) error

	Dashboard(ctx context.Context, sess *model.Session) (service.Dashboard, error)
	HealthRecord(ctx context.Context, sess *model.Session) (types.Result[model.HealthRecord], error)
	RiskAssessment(ctx context.Context, sess *model.Session) (types.Result[model.RiskAssessment], error)
	InsurancePolicies(ctx context.Context, sess *model.Session) (types.Result[[]model.InsurancePolicy], error)
	PoliciesForExport(ctx context.Context, sess *model.Session) ([]model.InsurancePolicy, error)
}

// Handler serves the portal pages.
type Handler struct {
	portal Portal
	signer *auth.CookieSigner
	pages  map[string]*template.Template

	cookieName   string
	cookieSecure bool
	sessionTTL   time.Duration

	logger logger.Logger
}

// New parses the embedded templates and returns a Handler.
func New(portal Portal, signer *auth.CookieSigner, opts ...Option) (*Handler, error) {
	h := &Handler{
		portal:     portal,
		signer:     signer,
		cookieName: "vitaldash_session",
		sessionTTL: 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Named("web")
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	h.pages = pages
	return h, nil
}

// Register attaches the page routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /{$}", h.page("dashboard", h.handleDashboard))
	mux.HandleFunc("GET "+PathHealthRecord, h.page("health_record", h.handleHealthRecord))
	mux.HandleFunc("GET "+PathRiskAssessment, h.page("risk_assessment", h.handleRiskAssessment))
	mux.HandleFunc("GET "+PathInsurancePolicies, h.page("insurance_policies", h.handleInsurancePolicies))
	mux.HandleFunc("GET "+PathPoliciesExport, h.page("policies_export", h.handleExport))

	mux.HandleFunc("GET "+PathLogin, h.public("login", h.handleLoginForm))
	mux.HandleFunc("POST "+PathLogin, h.public("login", h.handleLogin))
	mux.HandleFunc("GET "+PathRegister, h.public("register", h.handleRegisterForm))
	mux.HandleFunc("POST "+PathRegister, h.public("register", h.handleRegister))
	mux.HandleFunc("POST "+PathLogout, api.MetricsMiddleware(h.withSession(h.handleLogout), "logout"))

	// Anything else goes home.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, PathDashboard, http.StatusSeeOther)
	})
}

// page wraps a protected route: session, guard, metrics.
func (h *Handler) page(name string, next http.HandlerFunc) http.HandlerFunc {
	return api.MetricsMiddleware(h.withSession(h.guard(next)), name)
}

// public wraps a login or register route; authenticated users are sent home.
func (h *Handler) public(name string, next http.HandlerFunc) http.HandlerFunc {
	return api.MetricsMiddleware(h.withSession(func(w http.ResponseWriter, r *http.Request) {
		if SessionFrom(r.Context()).Authenticated() {
			http.Redirect(w, r, PathDashboard, http.StatusSeeOther)
			return
		}
		next(w, r)
	}), name)
}

// guard redirects requests without an authenticated session to the login page.
func (h *Handler) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFrom(r.Context())
		if !sess.Authenticated() {
			http.Redirect(w, r, loginTarget(sess), http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func loginTarget(sess *model.Session) string {
	if sess.State == model.AuthExpired {
		return PathLogin + "?expired=1"
	}
	return PathLogin
}

// withSession resolves the session cookie, renews the access token when it
// is close to expiry and attaches the session to the request context.
func (h *Handler) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sess := h.loadSession(ctx, r)

		if sess.Authenticated() {
			if err := h.portal.EnsureFreshToken(ctx, sess); err != nil && !errors.Is(err, service.ErrSessionExpired) {
				h.logger.Warn(ctx, "token check failed", logger.Error(err))
			}
		}
		if sess.ID != "" {
			if err := h.portal.Touch(ctx, sess); err != nil {
				h.logger.Warn(ctx, "failed to touch session", logger.Error(err))
			}
			h.setCookie(w, sess.ID)
		}

		next(w, r.WithContext(WithSession(ctx, sess)))
	}
}

func (h *Handler) loadSession(ctx context.Context, r *http.Request) *model.Session {
	c, err := r.Cookie(h.cookieName)
	if err != nil || c.Value == "" {
		return &model.Session{State: model.AuthAnonymous}
	}
	id, err := h.signer.Verify(c.Value)
	if err != nil {
		h.logger.Debug(ctx, "rejected session cookie", logger.Error(err))
		return &model.Session{State: model.AuthAnonymous}
	}
	sess, err := h.portal.Session(ctx, id)
	switch {
	case err == nil:
		return sess
	case errors.Is(err, repository.ErrExpired):
		return &model.Session{State: model.AuthExpired}
	case errors.Is(err, repository.ErrNotFound):
		return &model.Session{State: model.AuthAnonymous}
	default:
		h.logger.Warn(ctx, "failed to load session", logger.Error(err))
		return &model.Session{State: model.AuthAnonymous}
	}
}

func (h *Handler) setCookie(w http.ResponseWriter, id string) {
	value, err := h.signer.Sign(id)
	if err != nil {
		h.logger.Error(context.Background(), "failed to sign session cookie", logger.Error(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
