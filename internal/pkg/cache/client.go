package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"
)

// StatusError is returned when an upstream responds outside the 2xx range
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// Client memoizes JSON API calls through a cache manager. Unlike the rest
// of the cache surface it propagates failures: a stale or absent API result
// is not a safe default.
type Client struct {
	cache      *Manager
	httpClient *http.Client
	defaultTTL time.Duration
}

// NewClient creates a caching HTTP client
func NewClient(cache *Manager, timeout, defaultTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Client{
		cache:      cache,
		httpClient: &http.Client{Timeout: timeout},
		defaultTTL: defaultTTL,
	}
}

// GetJSON performs a memoized GET request
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}, ttl time.Duration) error {
	return c.DoJSON(ctx, http.MethodGet, url, nil, dest, ttl)
}

// DoJSON performs a memoized JSON request. Within the TTL window exactly one
// network call is made per unique (method, url, body); only 2xx JSON
// responses are cached, failures are returned to the caller uncached.
func (c *Client) DoJSON(ctx context.Context, method, url string, body []byte, dest interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := requestKey(method, url, body)

	if c.cache.Get(ctx, key, dest) {
		return nil
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if dest != nil {
		if err := json.Unmarshal(payload, dest); err != nil {
			return fmt.Errorf("failed to decode response from %s: %w", url, err)
		}
	}

	c.cache.Set(ctx, key, json.RawMessage(payload), ttl)
	return nil
}

func requestKey(method, url string, body []byte) string {
	return fmt.Sprintf("api:%s:%s:%x", method, url, xxhash.Sum64(body))
}
