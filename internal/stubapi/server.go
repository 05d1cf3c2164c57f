// Package stubapi is an in-memory stand-in for the Healthcare Analytics API
// used for local development and end-to-end tests.
package stubapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/vitaldash/internal/adapters/upstream"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/pkg/logger"
)

const (
	apiName    = "Healthcare Analytics API"
	apiVersion = "1.0.0"
)

// Server serves the API routes over an in-memory user store.
type Server struct {
	router   *mux.Router
	users    *userStore
	secret   []byte
	tokenTTL time.Duration
	seed     []model.Registration
	logger   logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	fixtures map[string]fixtures
}

// New creates a stub server.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		users:    newUserStore(),
		tokenTTL: 30 * time.Minute,
		now:      time.Now,
		fixtures: make(map[string]fixtures),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("stubapi")
	}
	if s.secret == nil {
		s.secret = []byte(rand.Text())
	}
	for _, reg := range s.seed {
		if _, err := s.users.register(reg); err != nil {
			return nil, err
		}
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc(upstream.PathRegister, s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc(upstream.PathLogin, s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc(upstream.PathRefresh, s.authed(s.handleRefresh)).Methods(http.MethodPost)
	r.HandleFunc(upstream.PathMe, s.authed(s.handleMe)).Methods(http.MethodGet)
	r.HandleFunc(upstream.PathHealthMetrics, s.authed(s.handleMetrics)).Methods(http.MethodGet)
	r.HandleFunc(upstream.PathHealthRecord, s.authed(s.handleRecord)).Methods(http.MethodGet)
	r.HandleFunc(upstream.PathRiskAssessment, s.authed(s.handleRisk)).Methods(http.MethodGet)
	r.HandleFunc(upstream.PathInsurancePolicies, s.authed(s.handlePolicies)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	s.router = r
}

// authed rejects requests without a valid bearer token.
func (s *Server) authed(next func(http.ResponseWriter, *http.Request, model.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := s.subject(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		user, _ := s.users.lookup(email)
		next(w, r, user)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to " + apiName,
		"version": apiVersion,
		"status":  "operational",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": apiVersion})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if !strings.Contains(reg.Email, "@") || reg.Password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "a valid email and a password are required")
		return
	}

	user, err := s.users.register(reg)
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	case err != nil:
		s.logger.Error(r.Context(), "registration failed", logger.Error(err))
		writeDetail(w, http.StatusInternalServerError, "registration failed")
		return
	}
	s.logger.Info(r.Context(), "user registered", logger.String("email", user.Email))
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	user, err := s.users.authenticate(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	s.writeToken(w, r, user.Email)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, user model.User) {
	s.writeToken(w, r, user.Email)
}

func (s *Server) writeToken(w http.ResponseWriter, r *http.Request, email string) {
	token, err := s.issue(email)
	if err != nil {
		s.logger.Error(r.Context(), "token issue failed", logger.Error(err))
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, model.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user model.User) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request, user model.User) {
	writeJSON(w, http.StatusOK, s.fixturesFor(user).metrics)
}

func (s *Server) handleRecord(w http.ResponseWriter, _ *http.Request, user model.User) {
	writeJSON(w, http.StatusOK, s.fixturesFor(user).record)
}

func (s *Server) handleRisk(w http.ResponseWriter, _ *http.Request, user model.User) {
	writeJSON(w, http.StatusOK, s.fixturesFor(user).risk)
}

func (s *Server) handlePolicies(w http.ResponseWriter, _ *http.Request, user model.User) {
	writeJSON(w, http.StatusOK, s.fixturesFor(user).policies)
}

func (s *Server) fixturesFor(user model.User) fixtures {
	key := strings.ToLower(user.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	fx, ok := s.fixtures[key]
	if !ok {
		fx = generate(user)
		s.fixtures[key] = fx
	}
	return fx
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes a FastAPI style error body.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
