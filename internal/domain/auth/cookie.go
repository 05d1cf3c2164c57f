package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "vitaldash"

// CookieSigner signs and verifies session cookies as HS256 JWTs.
type CookieSigner struct {
	secretKey []byte
	ttl       time.Duration
	generated bool
}

// cookieClaims carries the session id in the jti claim.
type cookieClaims struct {
	jwt.RegisteredClaims
}

// NewCookieSigner creates a signer. An empty secret is replaced by a random
// per-process one; cookies then do not survive a restart.
func NewCookieSigner(secret string, ttl time.Duration) (*CookieSigner, error) {
	s := &CookieSigner{secretKey: []byte(secret), ttl: ttl}
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		s.secretKey = []byte(hex.EncodeToString(buf))
		s.generated = true
	}
	return s, nil
}

// Generated reports whether the secret was generated at startup.
func (s *CookieSigner) Generated() bool { return s.generated }

// Sign returns a cookie value for the session id.
func (s *CookieSigner) Sign(sessionID string) (string, error) {
	now := time.Now()
	claims := &cookieClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// Verify checks a cookie value and returns the session id it carries.
func (s *CookieSigner) Verify(value string) (string, error) {
	token, err := jwt.ParseWithClaims(
		value,
		&cookieClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	claims, ok := token.Claims.(*cookieClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}
