// Package session implements the cache-aside session validator with
// sliding-window expiry that gates every mutating endpoint.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"avatar-gateway/internal/audit"
	"avatar-gateway/internal/session/metrics"
	"avatar-gateway/internal/session/models"
	"avatar-gateway/internal/session/provider"
	"avatar-gateway/internal/session/store"
	"avatar-gateway/pkg/platform/sentinel"
	"avatar-gateway/pkg/requestcontext"
)

// Validator resolves bearer tokens to sessions: cache first, identity
// provider on miss, cache backfill on success. Cache failures are never
// surfaced to the caller; they degrade to provider round trips.
type Validator struct {
	store    store.Store
	identity provider.Identity
	window   time.Duration
	ledger   *audit.Ledger
	metrics  *metrics.Metrics
}

// Option configures optional validator dependencies.
type Option func(*Validator)

// WithLedger attaches the internal audit channel.
func WithLedger(ledger *audit.Ledger) Option {
	return func(v *Validator) { v.ledger = ledger }
}

// WithMetrics attaches cache observability.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// NewValidator constructs the validator. window is the sliding-window TTL
// applied on every hit and backfill.
func NewValidator(s store.Store, identity provider.Identity, window time.Duration, opts ...Option) *Validator {
	v := &Validator{store: s, identity: identity, window: window}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate resolves a bearer token to a session, or nil when the caller is
// unauthenticated. An empty token short-circuits without any I/O.
//
// On a cache hit with a live entry the expiry is extended to now+window and
// the entry rewritten with a refreshed TTL. A hit on an expired entry deletes
// it and falls through to the provider. Concurrent refreshes of one token
// race last-writer-wins; all writers derive the same payload.
func (v *Validator) Validate(ctx context.Context, token string) *models.Session {
	if token == "" {
		return nil
	}

	now := requestcontext.Now(ctx)

	cached, err := v.store.Get(ctx, token)
	switch {
	case err == nil:
		if !cached.Expired(now) {
			v.refresh(ctx, token, cached, now)
			v.hit()
			return cached
		}
		// Expired entry: drop it and treat as a miss.
		if delErr := v.store.Delete(ctx, token); delErr != nil {
			v.ledger.Error(ctx, "session cache delete failed", delErr)
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// Plain miss.
	default:
		// Cache trouble degrades to a provider round trip, never to a 500.
		v.cacheError()
		v.ledger.Error(ctx, "session cache read failed", err)
	}
	v.miss()

	session, err := v.identity.Verify(ctx, token)
	if err != nil {
		v.validateFailed()
		v.ledger.Error(ctx, "identity provider verification failed", err,
			"claims", PeekClaims(token),
		)
		return nil
	}

	if putErr := v.store.Put(ctx, token, session, v.window); putErr != nil {
		v.cacheError()
		v.ledger.Error(ctx, "session cache backfill failed", putErr, "user_id", session.UserID)
	}
	v.ledger.Log(ctx, "session validated from identity provider",
		"user_id", session.UserID,
		"cache_hit", false,
	)
	return session
}

// Invalidate removes the cached copy of a session. It does not revoke the
// token at the identity provider.
func (v *Validator) Invalidate(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := v.store.Delete(ctx, token); err != nil {
		v.ledger.Error(ctx, "session invalidation failed", err)
		return
	}
	v.ledger.Log(ctx, "session invalidated")
}

func (v *Validator) refresh(ctx context.Context, token string, session *models.Session, now time.Time) {
	session.ExpiresAt = now.Add(v.window)
	if err := v.store.Put(ctx, token, session, v.window); err != nil {
		// The stale entry still validates; only the window extension is lost.
		if v.metrics != nil {
			v.metrics.RefreshFailures.Inc()
		}
		v.ledger.Error(ctx, "session refresh write failed", err, "user_id", session.UserID)
	}
}

func (v *Validator) hit() {
	if v.metrics != nil {
		v.metrics.CacheHits.Inc()
	}
}

func (v *Validator) miss() {
	if v.metrics != nil {
		v.metrics.CacheMisses.Inc()
	}
}

func (v *Validator) cacheError() {
	if v.metrics != nil {
		v.metrics.CacheErrors.Inc()
	}
}

func (v *Validator) validateFailed() {
	if v.metrics != nil {
		v.metrics.ValidateFailed.Inc()
	}
}

// ExtractBearer pulls the token out of an Authorization header value.
// Returns "" when the header is absent or not a bearer scheme.
func ExtractBearer(header string) string {
	const prefix = "Bearer "
	if token, ok := strings.CutPrefix(header, prefix); ok {
		return token
	}
	return ""
}
