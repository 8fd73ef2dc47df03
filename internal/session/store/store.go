// Package store provides session cache backends. The cache is best-effort:
// callers treat any error as a miss and fall back to the identity provider.
package store

import (
	"context"
	"time"

	"avatar-gateway/internal/session/models"
)

// Store is the session cache port. Implementations return
// sentinel.ErrNotFound for absent tokens so callers can distinguish a miss
// from an infrastructure failure.
type Store interface {
	Get(ctx context.Context, token string) (*models.Session, error)
	Put(ctx context.Context, token string, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}
