package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"avatar-gateway/internal/moderation"
)

// PostgRESTDecisionLog appends rows through a PostgREST-compatible endpoint
// (POST /rest/v1/moderation_logs) with service-role authentication.
type PostgRESTDecisionLog struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewPostgRESTDecisionLog builds the REST adapter.
func NewPostgRESTDecisionLog(baseURL, serviceKey string, client *http.Client) *PostgRESTDecisionLog {
	if client == nil {
		client = http.DefaultClient
	}
	return &PostgRESTDecisionLog{baseURL: baseURL, serviceKey: serviceKey, client: client}
}

type moderationRow struct {
	UserID          string  `json:"user_id"`
	AvatarURL       string  `json:"avatar_url"`
	Status          string  `json:"status"`
	Reason          string  `json:"reason"`
	ConfidenceScore float64 `json:"confidence_score"`
	APICost         float64 `json:"api_cost"`
	CreatedAt       string  `json:"created_at"`
}

// Append posts one decision row.
func (s *PostgRESTDecisionLog) Append(ctx context.Context, rec moderation.Record) error {
	body, err := json.Marshal(moderationRow{
		UserID:          rec.UserID,
		AvatarURL:       rec.AvatarURL,
		Status:          string(rec.Status),
		Reason:          rec.Reason,
		ConfidenceScore: rec.Confidence,
		APICost:         rec.Cost,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode moderation row: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/rest/v1/moderation_logs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build moderation log request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("moderation log request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("moderation log status %d", resp.StatusCode)
	}
	return nil
}
