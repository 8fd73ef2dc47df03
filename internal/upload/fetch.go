package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPFetcher downloads legacy avatars for migration. Reads are capped at the
// upload size limit so a mislabeled source object cannot balloon memory.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher wraps the given client.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

// Fetch retrieves one source object.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch source avatar status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read source avatar: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("source avatar exceeds %d bytes", MaxFileSize)
	}
	return data, nil
}
