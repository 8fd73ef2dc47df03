package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// PostgRESTStore persists profiles through a PostgREST-compatible endpoint
// (PATCH /rest/v1/profiles?id=eq.<id>) with service-role authentication.
type PostgRESTStore struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewPostgRESTStore builds the REST adapter.
func NewPostgRESTStore(baseURL, serviceKey string, client *http.Client) *PostgRESTStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &PostgRESTStore{baseURL: baseURL, serviceKey: serviceKey, client: client}
}

type profilePatch struct {
	AvatarR2URL      string `json:"avatar_r2_url"`
	AvatarCDNURL     string `json:"avatar_cdn_url"`
	AvatarUploadedAt string `json:"avatar_uploaded_at"`
}

// UpdateAvatar patches the avatar fields of one profile row.
func (s *PostgRESTStore) UpdateAvatar(ctx context.Context, userID string, upd AvatarUpdate) error {
	body, err := json.Marshal(profilePatch{
		AvatarR2URL:      upd.StorageRef,
		AvatarCDNURL:     upd.CDNUrl,
		AvatarUploadedAt: upd.UploadedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode profile patch: %w", err)
	}

	endpoint := s.baseURL + "/rest/v1/profiles?id=eq." + url.QueryEscape(userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build profile patch: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("profile patch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("profile patch status %d", resp.StatusCode)
	}
	return nil
}

// ListLegacyAvatars fetches profiles with an avatar_url but no blob-store
// copy, for the migration endpoint.
func (s *PostgRESTStore) ListLegacyAvatars(ctx context.Context, limit int) ([]LegacyAvatar, error) {
	endpoint := s.baseURL + "/rest/v1/profiles?avatar_url=not.is.null&avatar_r2_url=is.null&select=id,avatar_url&limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build legacy avatar list: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("legacy avatar list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("legacy avatar list status %d", resp.StatusCode)
	}

	var rows []struct {
		ID        string `json:"id"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode legacy avatar list: %w", err)
	}

	out := make([]LegacyAvatar, 0, len(rows))
	for _, row := range rows {
		out = append(out, LegacyAvatar{ID: row.ID, AvatarURL: row.AvatarURL})
	}
	return out, nil
}

func (s *PostgRESTStore) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
}
