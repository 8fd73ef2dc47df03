package profile

import (
	"context"
	"sync"
)

// InMemoryStore is a map-backed profile store for unit tests.
type InMemoryStore struct {
	mu        sync.Mutex
	updates   map[string]AvatarUpdate
	legacy    []LegacyAvatar
	updateErr error
}

// NewInMemoryStore builds an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{updates: make(map[string]AvatarUpdate)}
}

// FailUpdatesWith makes every subsequent UpdateAvatar return err. Test helper.
func (s *InMemoryStore) FailUpdatesWith(err error) {
	s.mu.Lock()
	s.updateErr = err
	s.mu.Unlock()
}

// SeedLegacy loads legacy avatar rows for migration tests.
func (s *InMemoryStore) SeedLegacy(rows []LegacyAvatar) {
	s.mu.Lock()
	s.legacy = append(s.legacy, rows...)
	s.mu.Unlock()
}

func (s *InMemoryStore) UpdateAvatar(_ context.Context, userID string, upd AvatarUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates[userID] = upd

	// Once migrated, the profile no longer counts as legacy.
	remaining := s.legacy[:0]
	for _, row := range s.legacy {
		if row.ID != userID {
			remaining = append(remaining, row)
		}
	}
	s.legacy = remaining
	return nil
}

func (s *InMemoryStore) ListLegacyAvatars(_ context.Context, limit int) ([]LegacyAvatar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.legacy) {
		limit = len(s.legacy)
	}
	out := make([]LegacyAvatar, limit)
	copy(out, s.legacy[:limit])
	return out, nil
}

// Update returns the last update applied for a user. Test helper.
func (s *InMemoryStore) Update(userID string) (AvatarUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upd, ok := s.updates[userID]
	return upd, ok
}
