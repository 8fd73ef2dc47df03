package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-gateway/internal/session/models"
	"avatar-gateway/pkg/platform/sentinel"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	session := &models.Session{
		UserID:    "user-1",
		Email:     "u1@example.com",
		Role:      "authenticated",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Put(ctx, "tok", session, time.Hour))

	got, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.Email, got.Email)
	assert.Equal(t, session.Role, got.Role)
}

func TestInMemoryStoreMiss(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreTTLEviction(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := NewInMemoryStore().WithClock(func() time.Time { return now })

	session := &models.Session{UserID: "user-1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Put(ctx, "tok", session, time.Minute))

	_, err := s.Get(ctx, "tok")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "tok")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Equal(t, 0, s.Len(), "lazy eviction should drop the entry on read")
}

func TestInMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	session := &models.Session{UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Put(ctx, "tok", session, time.Hour))

	first, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	first.UserID = "mutated"

	second, err := s.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "user-1", second.UserID)
}

func TestInMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	session := &models.Session{UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Put(ctx, "tok", session, time.Hour))
	require.NoError(t, s.Delete(ctx, "tok"))

	_, err := s.Get(ctx, "tok")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Deleting an absent token is a no-op, not an error.
	assert.NoError(t, s.Delete(ctx, "tok"))
}
