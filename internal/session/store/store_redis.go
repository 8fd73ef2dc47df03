package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"avatar-gateway/internal/session/models"
	"avatar-gateway/pkg/platform/sentinel"
)

// Redis key prefix for cached sessions.
const sessionKeyPrefix = "session:"

// cachedSession is the wire shape stored in Redis. Expiry is epoch
// milliseconds for compatibility with entries written by the previous edge
// deployment.
type cachedSession struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role,omitempty"`
	ExpiresAt int64  `json:"expiresAt"`
}

// RedisStore is the production session cache. Client lifecycle is managed
// externally.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get fetches the cached session for a token. redis.Nil maps to
// sentinel.ErrNotFound; any other failure is an infrastructure error the
// caller will treat as a miss.
func (s *RedisStore) Get(ctx context.Context, token string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session cache read: %w", err)
	}

	var cached cachedSession
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, fmt.Errorf("session cache decode: %w", err)
	}

	return &models.Session{
		UserID:    cached.UserID,
		Email:     cached.Email,
		Role:      cached.Role,
		ExpiresAt: time.UnixMilli(cached.ExpiresAt),
	}, nil
}

// Put writes a session with the given TTL. Concurrent refreshes of the same
// token race last-writer-wins, which is acceptable because all writers derive
// the same payload from the same underlying claim.
func (s *RedisStore) Put(ctx context.Context, token string, session *models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(cachedSession{
		UserID:    session.UserID,
		Email:     session.Email,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("session cache encode: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("session cache write: %w", err)
	}
	return nil
}

// Delete removes the cache entry. This is a local decache, not a revocation
// at the identity provider.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session cache delete: %w", err)
	}
	return nil
}
