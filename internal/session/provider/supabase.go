package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"avatar-gateway/internal/session/models"
	"avatar-gateway/pkg/platform/sentinel"
	"avatar-gateway/pkg/requestcontext"
)

// Supabase verifies bearer tokens against a GoTrue-compatible auth endpoint
// (GET /auth/v1/user with the service apikey).
type Supabase struct {
	baseURL    string
	serviceKey string
	window     time.Duration
	client     *http.Client
}

// NewSupabase builds the adapter. window controls how far in the future a
// freshly verified session expires.
func NewSupabase(baseURL, serviceKey string, window, timeout time.Duration) *Supabase {
	return &Supabase{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		window:     window,
		client:     &http.Client{Timeout: timeout},
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verify calls the provider's user endpoint with the caller's token. A non-2xx
// status maps to sentinel.ErrUnauthorized; transport failures surface as-is.
func (p *Supabase) Verify(ctx context.Context, token string) (*models.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", p.serviceKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("identity provider status %d: %w", resp.StatusCode, sentinel.ErrUnauthorized)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode identity response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("identity response missing user id: %w", sentinel.ErrUnauthorized)
	}

	return &models.Session{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		ExpiresAt: requestcontext.Now(ctx).Add(p.window),
	}, nil
}
