package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/vitaldash/internal/adapters/upstream"
	service "github.com/okian/vitaldash/internal/app"
	"github.com/okian/vitaldash/internal/domain/model"
	"github.com/okian/vitaldash/pkg/logger"
)

// registerFields are the form inputs of the registration page.
var registerFields = []string{"email", "first_name", "last_name", "date_of_birth", "gender", "phone_number"}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	v := view{Title: "Sign in", Active: PathLogin}
	q := r.URL.Query()
	switch {
	case q.Get("expired") != "" || SessionFrom(r.Context()).State == model.AuthExpired:
		v.Notice = "Your session has expired. Please sign in again."
	case q.Get("registered") != "":
		v.Notice = "Registration successful. Please sign in."
	}
	h.render(r.Context(), w, http.StatusOK, "login", v)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.render(ctx, w, http.StatusBadRequest, "login", view{Title: "Sign in", Active: PathLogin, Error: "Invalid form submission."})
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	form := map[string]string{"username": username}

	sess := SessionFrom(ctx)
	if sess.ID == "" {
		fresh, err := h.portal.NewSession(ctx)
		if err != nil {
			h.logger.Error(ctx, "failed to create session", logger.Error(err))
			h.render(ctx, w, http.StatusInternalServerError, "login", view{Title: "Sign in", Active: PathLogin, Error: "Sign in is unavailable, please try again.", Form: form})
			return
		}
		sess = fresh
	}

	logged, err := h.portal.Login(ctx, sess, username, password)
	if err != nil {
		status, msg := loginFailure(err)
		h.setCookie(w, sess.ID)
		h.render(ctx, w, status, "login", view{Title: "Sign in", Active: PathLogin, Error: msg, Form: form})
		return
	}

	h.setCookie(w, logged.ID)
	http.Redirect(w, r, PathDashboard, http.StatusSeeOther)
}

func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		return http.StatusBadRequest, "Email and password are required."
	case errors.Is(err, upstream.ErrUnauthorized), errors.Is(err, upstream.ErrRejected):
		if d := upstream.Detail(err); d != "" {
			return http.StatusUnauthorized, d
		}
		return http.StatusUnauthorized, "Invalid email or password."
	default:
		return http.StatusBadGateway, "The health service is unavailable, please try again."
	}
}

func (h *Handler) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.render(r.Context(), w, http.StatusOK, "register", view{Title: "Register", Active: PathRegister})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.render(ctx, w, http.StatusBadRequest, "register", view{Title: "Register", Active: PathRegister, Error: "Invalid form submission."})
		return
	}
	form := make(map[string]string, len(registerFields))
	for _, f := range registerFields {
		form[f] = strings.TrimSpace(r.PostForm.Get(f))
	}
	reg := model.Registration{
		Email:       form["email"],
		Password:    r.PostForm.Get("password"),
		FirstName:   form["first_name"],
		LastName:    form["last_name"],
		DateOfBirth: form["date_of_birth"],
		Gender:      form["gender"],
		PhoneNumber: form["phone_number"],
	}
	if reg.Password != r.PostForm.Get("confirm_password") {
		h.render(ctx, w, http.StatusBadRequest, "register", view{Title: "Register", Active: PathRegister, Error: "Passwords do not match.", Form: form})
		return
	}

	if _, err := h.portal.Register(ctx, reg); err != nil {
		status, msg := registerFailure(err)
		h.render(ctx, w, status, "register", view{Title: "Register", Active: PathRegister, Error: msg, Form: form})
		return
	}
	http.Redirect(w, r, PathLogin+"?registered=1", http.StatusSeeOther)
}

func registerFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		return http.StatusBadRequest, "Email and password are required."
	case errors.Is(err, upstream.ErrRejected):
		if d := upstream.Detail(err); d != "" {
			return http.StatusBadRequest, d
		}
		return http.StatusBadRequest, "Registration was rejected."
	default:
		return http.StatusBadGateway, "The health service is unavailable, please try again."
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := SessionFrom(ctx)
	if sess.ID != "" {
		if err := h.portal.Logout(ctx, sess); err != nil {
			h.logger.Warn(ctx, "logout failed", logger.Error(err))
		}
	}
	h.clearCookie(w)
	http.Redirect(w, r, PathLogin, http.StatusSeeOther)
}
