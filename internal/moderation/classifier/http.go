// Package classifier holds image-classification backends for the moderation
// policy.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"avatar-gateway/internal/moderation"
)

// HTTPClassifier calls an inference endpoint that accepts the image as a byte
// array and returns classification labels with scores. The request shape
// matches run(model, {image: byteArray}) style gateways.
type HTTPClassifier struct {
	baseURL string
	token   string
	model   string
	client  *http.Client
}

// NewHTTP builds the adapter. The timeout lives on the injected client so the
// moderation stage can never hang past its budget.
func NewHTTP(baseURL, token, model string, client *http.Client) *HTTPClassifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClassifier{baseURL: baseURL, token: token, model: model, client: client}
}

type classifyRequest struct {
	Image []int `json:"image"`
}

type classifyResponse struct {
	// Result and Classifications cover the two response envelopes seen from
	// inference gateways; whichever is populated wins.
	Result          []moderation.Label `json:"result"`
	Classifications []moderation.Label `json:"classifications"`
}

// Classify runs the configured model over the image.
func (c *HTTPClassifier) Classify(ctx context.Context, image []byte) ([]moderation.Label, error) {
	payload := classifyRequest{Image: make([]int, len(image))}
	for i, b := range image {
		payload.Image[i] = int(b)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}

	url := fmt.Sprintf("%s/run/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("classifier status %d", resp.StatusCode)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}
	if len(decoded.Result) > 0 {
		return decoded.Result, nil
	}
	return decoded.Classifications, nil
}
