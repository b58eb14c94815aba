package session

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by a TTL cache. It is the
// default backend and the one used by tests.
type MemoryStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemoryStore creates a memory store with the given TTL; zero means
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cache: gocache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

// Get retrieves a session by id.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*Session).clone(), nil
}

// Save stores the session and renews its expiration window.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	s.ExpiresAt = time.Now().UTC().Add(m.ttl)
	m.cache.Set(s.ID, s.clone(), m.ttl)
	return nil
}
