// Package store persists moderation decision records. The log is
// append-only: rows are written exactly once and never mutated.
package store

import (
	"context"

	"avatar-gateway/internal/moderation"
)

// DecisionLog appends moderation records for audit.
type DecisionLog interface {
	Append(ctx context.Context, rec moderation.Record) error
}
