package store

import (
	"context"
	"sync"
	"time"

	"avatar-gateway/internal/session/models"
	"avatar-gateway/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed session cache for unit tests and single-node
// development. TTLs are honored lazily on read.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	session  models.Session
	evictAt  time.Time
	hasEvict bool
}

// NewInMemoryStore builds an empty store using the wall clock.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock overrides the eviction clock. Test use only.
func (s *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	s.now = now
	return s
}

func (s *InMemoryStore) Get(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	entry, ok := s.entries[token]
	s.mu.RUnlock()

	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if entry.hasEvict && !entry.evictAt.After(s.now()) {
		s.mu.Lock()
		delete(s.entries, token)
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}

	session := entry.session
	return &session, nil
}

func (s *InMemoryStore) Put(_ context.Context, token string, session *models.Session, ttl time.Duration) error {
	entry := memoryEntry{session: *session}
	if ttl > 0 {
		entry.evictAt = s.now().Add(ttl)
		entry.hasEvict = true
	}

	s.mu.Lock()
	s.entries[token] = entry
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live entries. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
