package web

import (
	"context"

	"github.com/okian/vitaldash/internal/domain/model"
)

type sessionKey struct{}

// WithSession returns a context carrying sess.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the request's session. Requests that passed through
// the session middleware always carry one; otherwise an unsaved anonymous
// session is returned.
func SessionFrom(ctx context.Context) *model.Session {
	if sess, ok := ctx.Value(sessionKey{}).(*model.Session); ok && sess != nil {
		return sess
	}
	return &model.Session{State: model.AuthAnonymous}
}
