package model

import "time"

// AuthState is the authentication state of a session.
type AuthState string

// Auth states.
const (
	AuthAnonymous      AuthState = "anonymous"
	AuthAuthenticating AuthState = "authenticating"
	AuthAuthenticated  AuthState = "authenticated"
	AuthExpired        AuthState = "expired"
)

// Session is the portal-owned record behind a session cookie.
type Session struct {
	ID          string    `json:"id"`
	State       AuthState `json:"state"`
	User        *User     `json:"user,omitempty"`
	AccessToken string    `json:"access_token,omitempty"`
	TokenType   string    `json:"token_type,omitempty"`
	// TokenExpiry is zero when the token carries no exp claim.
	TokenExpiry time.Time `json:"token_expiry"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticated reports whether the session holds a usable user.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == AuthAuthenticated && s.User != nil
}

// Expired reports whether the session itself outlived its TTL.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Login replaces the held user and token.
func (s *Session) Login(user User, token Token, expiry time.Time) {
	s.User = &user
	s.AccessToken = token.AccessToken
	s.TokenType = token.TokenType
	s.TokenExpiry = expiry
}

// Logout clears the held user and token.
func (s *Session) Logout() {
	s.User = nil
	s.AccessToken = ""
	s.TokenType = ""
	s.TokenExpiry = time.Time{}
}
