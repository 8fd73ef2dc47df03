// Package provider holds identity-provider adapters. The provider is the
// source of truth for sessions; the cache in internal/session/store only
// holds transient copies.
package provider

import (
	"context"

	"avatar-gateway/internal/session/models"
)

// Identity verifies a bearer token with the upstream identity provider.
// Implementations return sentinel.ErrUnauthorized for rejected tokens and
// other errors for transport failures; the caller treats both as an invalid
// session.
type Identity interface {
	Verify(ctx context.Context, token string) (*models.Session, error)
}
