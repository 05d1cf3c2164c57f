// Package repository persists portal sessions.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vitaldash/internal/config"
	"github.com/okian/vitaldash/internal/domain/model"
)

// SessionStore provides durable read/write access to sessions.
type SessionStore interface {
	// Get returns the session with id.
	// Returns ErrNotFound if it is unknown and ErrExpired if it outlived its TTL.
	Get(ctx context.Context, id string) (*model.Session, error)

	// Save creates or replaces a session and extends its lifetime by the store TTL.
	Save(ctx context.Context, s *model.Session) error

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error

	// PurgeExpired removes sessions whose expiry plus the store's expired grace
	// is before now and reports how many.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Open builds the store selected by cfg.SessionBackend.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (SessionStore, error) {
	opts = append([]Option{WithTTL(cfg.SessionTTL()), WithExpiredGrace(cfg.SessionExpiredGrace())}, opts...)
	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		return NewMemoryStore(opts...), nil
	case config.SessionBackendSQLite:
		return NewSQLiteStore(ctx, cfg.SessionSQLitePath, opts...)
	case config.SessionBackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.SessionBackend)
	}
}

// touch stamps a session before it is persisted.
func touch(s *model.Session, now time.Time, ttl time.Duration) error {
	if s == nil || s.ID == "" {
		return ErrInvalidSession
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
	return nil
}

// clone copies a session so callers never share the stored value.
func clone(s *model.Session) *model.Session {
	c := *s
	if s.User != nil {
		u := *s.User
		c.User = &u
	}
	return &c
}
