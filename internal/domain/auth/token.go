package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim of an access token without verifying it.
// The portal is not the issuer, the API validates its own tokens.
// A token without an exp claim yields the zero time.
func TokenExpiry(accessToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// NeedsRefresh reports whether a token expiring at expiry should be renewed at now.
func NeedsRefresh(expiry, now time.Time, window time.Duration) bool {
	if expiry.IsZero() {
		return false
	}
	return !now.Before(expiry.Add(-window))
}
