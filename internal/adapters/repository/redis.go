package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/vitaldash/internal/domain/model"
	redis "github.com/redis/go-redis/v9"
)

var _ SessionStore = (*RedisStore)(nil)

// RedisStore keeps sessions in redis as JSON values with a native TTL of the
// session TTL plus the expired grace, so several portal replicas can share them.
type RedisStore struct {
	client   *redis.Client
	settings settings
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, settings: newSettings(opts)}, nil
}

func (r *RedisStore) key(id string) string { return r.settings.keyPrefix + id }

func (r *RedisStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.settings.opTimeout)
}

// Get implements SessionStore.Get.
func (r *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	ctx, cancel := r.opContext(ctx)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if sess.Expired(r.settings.now()) {
		return nil, ErrExpired
	}
	return &sess, nil
}

// Save implements SessionStore.Save.
func (r *RedisStore) Save(ctx context.Context, sess *model.Session) error {
	if err := touch(sess, r.settings.now(), r.settings.ttl); err != nil {
		return err
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if err := r.client.Set(ctx, r.key(sess.ID), data, r.settings.ttl+r.settings.grace).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete implements SessionStore.Delete.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.opContext(ctx)
	defer cancel()
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired implements SessionStore.PurgeExpired. Redis expires keys on
// its own once the grace period is over; this only removes values whose
// embedded expiry plus grace passed first.
func (r *RedisStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-r.settings.grace)
	purged := 0
	iter := r.client.Scan(ctx, 0, r.settings.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return purged, fmt.Errorf("failed to read session: %w", err)
		}
		var sess model.Session
		if err := json.Unmarshal(data, &sess); err != nil || sess.Expired(cutoff) {
			if err := r.client.Del(ctx, key).Err(); err != nil {
				return purged, fmt.Errorf("failed to delete session: %w", err)
			}
			purged++
		}
	}
	if err := iter.Err(); err != nil {
		return purged, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return purged, nil
}

// Count implements SessionStore.Count.
func (r *RedisStore) Count(ctx context.Context) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, r.settings.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return n, nil
}

// Close closes the redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
