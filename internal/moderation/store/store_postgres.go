package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"avatar-gateway/internal/moderation"
)

// PostgresDecisionLog writes moderation rows directly to the database. Used
// when the gateway has a DSN for the profile database; deployments without
// one go through the REST adapter instead.
type PostgresDecisionLog struct {
	pool *pgxpool.Pool
}

// NewPostgresDecisionLog wraps an existing pool.
func NewPostgresDecisionLog(pool *pgxpool.Pool) *PostgresDecisionLog {
	return &PostgresDecisionLog{pool: pool}
}

// Append inserts one decision row.
func (s *PostgresDecisionLog) Append(ctx context.Context, rec moderation.Record) error {
	const q = `
		INSERT INTO moderation_logs
			(user_id, avatar_url, status, reason, confidence_score, api_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, q,
		rec.UserID,
		rec.AvatarURL,
		string(rec.Status),
		rec.Reason,
		rec.Confidence,
		rec.Cost,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append moderation log: %w", err)
	}
	return nil
}
