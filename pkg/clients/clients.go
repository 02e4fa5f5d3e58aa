// Package clients provides shared HTTP functionality for the hosting-service
// API clients consumed by the providers.
//
// The shared Client handles response caching, retry logic, default headers,
// proxy configuration and per-host query parameters; the per-service
// subpackages (bitbucket, github) build their endpoint logic on top of it.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/packshelf/packshelf/pkg/cache"
	"github.com/packshelf/packshelf/pkg/httputil"
	"github.com/packshelf/packshelf/pkg/provider"
)

// Client provides shared HTTP functionality for all hosting API clients.
// It handles caching, retry logic, and common request headers.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	http    *http.Client
	backend cache.Cache
	prefix  string
	ttl     time.Duration
	headers map[string]string
	params  map[string]map[string]string
}

// NewClient creates a Client backed by the given cache.
//
// The prefix namespaces this client's cache keys (e.g. "bitbucket:").
// Settings supply the request timeout, User-Agent, proxy configuration,
// per-host query parameters and the cache freshness window. Pass nil for
// headers if no service-specific headers are needed.
func NewClient(backend cache.Cache, prefix string, settings provider.Settings, headers map[string]string) *Client {
	merged := map[string]string{}
	if settings.UserAgent != "" {
		merged["User-Agent"] = settings.UserAgent
	}
	for k, v := range headers {
		merged[k] = v
	}

	return &Client{
		http:    NewHTTPClient(settings),
		backend: backend,
		prefix:  prefix,
		ttl:     settings.CacheLength,
		headers: merged,
		params:  settings.QueryStringParams,
	}
}

// Cached retrieves a value from the cache or executes fetch and caches the
// result. The fetch function should populate v; on success, v is stored
// under the client's prefix with the configured freshness window.
func (c *Client) Cached(ctx context.Context, key string, v any, fetch func() error) error {
	fullKey := c.prefix + key

	if data, ok, _ := c.backend.Get(ctx, fullKey); ok {
		if err := json.Unmarshal(data, v); err == nil {
			return nil
		}
	}

	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}

	if data, err := json.Marshal(v); err == nil {
		_ = c.backend.Set(ctx, fullKey, data, c.ttl)
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
// It applies the client's default headers and per-host query parameters.
// Transient failures come back wrapped as retryable; retries happen when the
// call runs inside Cached.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// GetText performs an HTTP GET request and returns the response body as a
// string. Useful for non-JSON endpoints like raw readme files.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	return string(data), err
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	rawURL, err := c.appendQueryParams(rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// appendQueryParams attaches the configured extra query parameters for the
// request's host, if any.
func (c *Client) appendQueryParams(rawURL string) (string, error) {
	if len(c.params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	extra, ok := c.params[u.Host]
	if !ok {
		return rawURL, nil
	}
	q := u.Query()
	for k, v := range extra {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
