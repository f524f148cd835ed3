package persistence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/perfguard/backend/internal/shared/types"
)

// CloudStore mirrors persisted state to a remote backend. Fetch reports
// whether the backend has any state at all, so a fresh account is not
// confused with empty data.
type CloudStore interface {
	Fetch(ctx context.Context) (types.PersistedData, bool, error)
	Push(ctx context.Context, data types.PersistedData) error
}

// HTTPCloudStore talks to the sync backend over HTTPS with automatic
// retries on transient failures.
type HTTPCloudStore struct {
	baseURL string
	token   string
	client  *retryablehttp.Client
}

// NewHTTPCloudStore creates a cloud store client.
func NewHTTPCloudStore(baseURL, token string) *HTTPCloudStore {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil

	return &HTTPCloudStore{
		baseURL: baseURL,
		token:   token,
		client:  client,
	}
}

// Fetch downloads the remote state. A 404 means the backend holds
// nothing yet.
func (c *HTTPCloudStore) Fetch(ctx context.Context) (types.PersistedData, bool, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/data", nil)
	if err != nil {
		return types.PersistedData{}, false, fmt.Errorf("failed to build fetch request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return types.PersistedData{}, false, fmt.Errorf("cloud fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return types.PersistedData{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return types.PersistedData{}, false, fmt.Errorf("cloud fetch failed: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.PersistedData{}, false, fmt.Errorf("failed to read cloud response: %w", err)
	}

	var data types.PersistedData
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return types.PersistedData{}, false, fmt.Errorf("failed to decode cloud response: %w", err)
	}
	return data, true, nil
}

// Push uploads the given state, replacing the remote copy.
func (c *HTTPCloudStore) Push(ctx context.Context, data types.PersistedData) error {
	raw, err := sonic.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode cloud payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/data", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloud push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("cloud push failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPCloudStore) authorize(req *retryablehttp.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
