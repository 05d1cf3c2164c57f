package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/okian/vitaldash/internal/domain/auth"
	"github.com/okian/vitaldash/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNext(t *testing.T) {
	Convey("Given the auth state machine", t, func() {
		valid := []struct {
			from model.AuthState
			ev   auth.Event
			to   model.AuthState
		}{
			{model.AuthAnonymous, auth.EventSubmit, model.AuthAuthenticating},
			{model.AuthAuthenticating, auth.EventSucceed, model.AuthAuthenticated},
			{model.AuthAuthenticating, auth.EventFail, model.AuthAnonymous},
			{model.AuthAuthenticated, auth.EventExpire, model.AuthExpired},
			{model.AuthAuthenticated, auth.EventRefresh, model.AuthAuthenticated},
			{model.AuthExpired, auth.EventSubmit, model.AuthAuthenticating},
			{model.AuthExpired, auth.EventRefresh, model.AuthAuthenticated},
			{"", auth.EventSubmit, model.AuthAuthenticating},
		}

		Convey("Then accepted events move to the expected state", func() {
			for _, tc := range valid {
				to, err := auth.Next(tc.from, tc.ev)
				So(err, ShouldBeNil)
				So(to, ShouldEqual, tc.to)
			}
		})

		Convey("Then logout is accepted from every state", func() {
			for _, s := range []model.AuthState{model.AuthAnonymous, model.AuthAuthenticating, model.AuthAuthenticated, model.AuthExpired} {
				to, err := auth.Next(s, auth.EventLogout)
				So(err, ShouldBeNil)
				So(to, ShouldEqual, model.AuthAnonymous)
			}
		})

		Convey("Then other events are rejected", func() {
			invalid := []struct {
				from model.AuthState
				ev   auth.Event
			}{
				{model.AuthAnonymous, auth.EventSucceed},
				{model.AuthAnonymous, auth.EventRefresh},
				{model.AuthAuthenticated, auth.EventSubmit},
				{model.AuthAuthenticating, auth.EventExpire},
				{model.AuthExpired, auth.EventSucceed},
			}
			for _, tc := range invalid {
				to, err := auth.Next(tc.from, tc.ev)
				So(errors.Is(err, auth.ErrInvalidTransition), ShouldBeTrue)
				So(to, ShouldEqual, tc.from)
			}
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given an authenticated session", t, func() {
		s := &model.Session{ID: "s1", State: model.AuthAuthenticated}
		s.Login(model.User{ID: 1}, model.Token{AccessToken: "tok"}, time.Time{})

		Convey("When logging out", func() {
			from, to, err := auth.Apply(s, auth.EventLogout)

			Convey("Then the user and token are cleared", func() {
				So(err, ShouldBeNil)
				So(from, ShouldEqual, model.AuthAuthenticated)
				So(to, ShouldEqual, model.AuthAnonymous)
				So(s.User, ShouldBeNil)
				So(s.AccessToken, ShouldEqual, "")
			})
		})

		Convey("When applying an invalid event", func() {
			_, _, err := auth.Apply(s, auth.EventSubmit)

			Convey("Then the session is unchanged", func() {
				So(err, ShouldNotBeNil)
				So(s.State, ShouldEqual, model.AuthAuthenticated)
				So(s.User, ShouldNotBeNil)
			})
		})
	})
}

func TestTokenExpiry(t *testing.T) {
	Convey("Given access tokens", t, func() {
		exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

		Convey("When the token has an exp claim", func() {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@b.c", "exp": exp.Unix()})
			signed, err := tok.SignedString([]byte("upstream-secret"))
			So(err, ShouldBeNil)

			got, err := auth.TokenExpiry(signed)
			So(err, ShouldBeNil)
			So(got.Equal(exp), ShouldBeTrue)
		})

		Convey("When the token has no exp claim", func() {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@b.c"})
			signed, _ := tok.SignedString([]byte("upstream-secret"))

			got, err := auth.TokenExpiry(signed)
			So(err, ShouldBeNil)
			So(got.IsZero(), ShouldBeTrue)
		})

		Convey("When the token is opaque", func() {
			_, err := auth.TokenExpiry("not-a-jwt")
			So(errors.Is(err, auth.ErrMalformedToken), ShouldBeTrue)
		})
	})
}

func TestNeedsRefresh(t *testing.T) {
	Convey("Given a refresh window of five minutes", t, func() {
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		window := 5 * time.Minute

		So(auth.NeedsRefresh(time.Time{}, now, window), ShouldBeFalse)
		So(auth.NeedsRefresh(now.Add(10*time.Minute), now, window), ShouldBeFalse)
		So(auth.NeedsRefresh(now.Add(5*time.Minute), now, window), ShouldBeTrue)
		So(auth.NeedsRefresh(now.Add(-time.Minute), now, window), ShouldBeTrue)
	})
}

func TestCookieSigner(t *testing.T) {
	Convey("Given a cookie signer", t, func() {
		signer, err := auth.NewCookieSigner("test-secret", time.Hour)
		So(err, ShouldBeNil)
		So(signer.Generated(), ShouldBeFalse)

		Convey("When signing a session id", func() {
			value, err := signer.Sign("session-123")
			So(err, ShouldBeNil)

			Convey("Then verification returns the id", func() {
				id, err := signer.Verify(value)
				So(err, ShouldBeNil)
				So(id, ShouldEqual, "session-123")
			})

			Convey("Then a signer with another secret rejects it", func() {
				other, _ := auth.NewCookieSigner("other-secret", time.Hour)
				_, err := other.Verify(value)
				So(errors.Is(err, auth.ErrInvalidCookie), ShouldBeTrue)
			})
		})

		Convey("When the cookie has expired", func() {
			short, _ := auth.NewCookieSigner("test-secret", -time.Minute)
			value, err := short.Sign("session-123")
			So(err, ShouldBeNil)

			_, err = signer.Verify(value)
			So(errors.Is(err, auth.ErrInvalidCookie), ShouldBeTrue)
		})

		Convey("When the cookie is garbage", func() {
			_, err := signer.Verify("garbage")
			So(errors.Is(err, auth.ErrInvalidCookie), ShouldBeTrue)
		})

		Convey("When no secret is configured", func() {
			gen, err := auth.NewCookieSigner("", time.Hour)
			So(err, ShouldBeNil)
			So(gen.Generated(), ShouldBeTrue)

			value, _ := gen.Sign("s")
			id, err := gen.Verify(value)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "s")
		})
	})
}
