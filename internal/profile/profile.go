// Package profile persists avatar references on user profiles.
package profile

import (
	"context"
	"time"
)

// AvatarUpdate is applied to a profile after a successful storage write.
type AvatarUpdate struct {
	StorageRef string
	CDNUrl     string
	UploadedAt time.Time
}

// LegacyAvatar identifies a profile still serving its avatar from the old
// location, i.e. it has an avatar_url but no blob-store copy.
type LegacyAvatar struct {
	ID        string
	AvatarURL string
}

// Store is the profile persistence port.
type Store interface {
	UpdateAvatar(ctx context.Context, userID string, upd AvatarUpdate) error
	ListLegacyAvatars(ctx context.Context, limit int) ([]LegacyAvatar, error)
}
