package profile

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"avatar-gateway/pkg/platform/sentinel"
)

// PostgresStore talks to the profile database directly.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// UpdateAvatar sets the avatar references on one profile. A missing profile
// is sentinel.ErrNotFound so the pipeline can report it as a dependency
// failure rather than silently succeeding.
func (s *PostgresStore) UpdateAvatar(ctx context.Context, userID string, upd AvatarUpdate) error {
	const q = `
		UPDATE profiles
		SET avatar_r2_url = $2, avatar_cdn_url = $3, avatar_uploaded_at = $4
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, q, userID, upd.StorageRef, upd.CDNUrl, upd.UploadedAt)
	if err != nil {
		return fmt.Errorf("update profile avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", userID, sentinel.ErrNotFound)
	}
	return nil
}

// ListLegacyAvatars returns profiles whose avatar has not been migrated to
// the blob store yet.
func (s *PostgresStore) ListLegacyAvatars(ctx context.Context, limit int) ([]LegacyAvatar, error) {
	const q = `
		SELECT id, avatar_url
		FROM profiles
		WHERE avatar_url IS NOT NULL AND avatar_r2_url IS NULL
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list legacy avatars: %w", err)
	}
	defer rows.Close()

	var out []LegacyAvatar
	for rows.Next() {
		var la LegacyAvatar
		if err := rows.Scan(&la.ID, &la.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan legacy avatar: %w", err)
		}
		out = append(out, la)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy avatars: %w", err)
	}
	return out, nil
}
