package models

import "time"

// Session is the cached authentication claim for one bearer token. The cache
// copy is transient; the identity provider remains the source of truth.
type Session struct {
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the session's sliding window has lapsed at the
// given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
