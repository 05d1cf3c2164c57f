package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/vitaldash/internal/domain/model"
)

var _ SessionStore = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	settings settings
}

// NewMemoryStore constructs an in-memory store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		settings: newSettings(opts),
	}
}

// Get implements SessionStore.Get.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.settings.now()) {
		return nil, ErrExpired
	}
	return clone(s), nil
}

// Save implements SessionStore.Save.
func (m *MemoryStore) Save(_ context.Context, s *model.Session) error {
	if err := touch(s, m.settings.now(), m.settings.ttl); err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = clone(s)
	m.mu.Unlock()
	return nil
}

// Delete implements SessionStore.Delete.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// PurgeExpired implements SessionStore.PurgeExpired.
func (m *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-m.settings.grace)
	purged := 0
	for id, s := range m.sessions {
		if s.Expired(cutoff) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// Count implements SessionStore.Count.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// Close implements SessionStore.Close.
func (m *MemoryStore) Close() error { return nil }
