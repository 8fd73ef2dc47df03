package blob

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPStore writes objects to a bucket exposed over HTTP (PUT/DELETE
// <base>/<key> with bearer auth), the shape offered by object-storage
// gateways and worker bindings alike.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPStore builds the adapter. baseURL must not end with a slash.
func NewHTTPStore(baseURL, token string, client *http.Client) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{baseURL: baseURL, token: token, client: client}
}

// Put uploads one object with its metadata.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, opts PutOptions) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build blob put: %w", err)
	}
	s.authorize(req)
	if opts.ContentType != "" {
		req.Header.Set("Content-Type", opts.ContentType)
	}
	if opts.CacheControl != "" {
		req.Header.Set("Cache-Control", opts.CacheControl)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("blob put: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("blob put status %d", resp.StatusCode)
	}
	return nil
}

// Delete removes one object. Used only for compensating cleanup after a
// failed profile persist.
func (s *HTTPStore) Delete(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.objectURL(key), nil)
	if err != nil {
		return fmt.Errorf("build blob delete: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("blob delete: %w", err)
	}
	defer resp.Body.Close()

	// Deleting an already-gone object is success for a compensating action.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("blob delete status %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPStore) objectURL(key string) string {
	// Keys contain a slash (userID/timestamp.webp); escape each segment but
	// keep the separator.
	return s.baseURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

func (s *HTTPStore) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}
