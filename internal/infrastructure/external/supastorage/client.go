// Package supastorage implements the Supabase Storage client.
// This package handles all communication with the Supabase Storage API:
// uploading evaluation photos, deleting replaced blobs, and listing keys
// for the orphan cleanup job.
package supastorage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/circuitbreaker"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
	"github.com/lupe-hub/lupe-evaluation-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Supabase Storage client.
type ClientConfig struct {
	// BaseURL is the Supabase project URL, e.g. https://xyz.supabase.co
	BaseURL string

	// ServiceKey is the service-role API key.
	ServiceKey string

	// Bucket is the storage bucket holding evaluation photos.
	Bucket string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *logger.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL, serviceKey, bucket string) ClientConfig {
	return ClientConfig{
		BaseURL:    baseURL,
		ServiceKey: serviceKey,
		Bucket:     bucket,
		Timeout:    30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// APIError is an error response from the Supabase Storage API.
type APIError struct {
	StatusCode int    `json:"statusCode,string"`
	ErrorCode  string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase storage: %s (status %d)", e.Message, e.StatusCode)
}

// IsNotFound reports whether the error is a missing-object response.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Supabase Storage API client. It implements media.BlobStore.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *logger.Logger
	retrier        *retry.Retrier
	circuitBreaker *circuitbreaker.CircuitBreaker
}

var _ media.BlobStore = (*Client)(nil)

// NewClient creates a new Supabase Storage client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	log := config.Logger.With(logger.Component("supastorage"))

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  log,
		retrier: retry.BlobStoreRetrier(),
		circuitBreaker: circuitbreaker.BlobStoreBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state change",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		}),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BLOB OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Put uploads data under key and returns the public URL.
// Keys are always fresh (timestamped), so uploads never overwrite in place.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", errors.New("key cannot be empty")
	}
	if len(data) == 0 {
		return "", errors.New("data cannot be empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	path := fmt.Sprintf("/storage/v1/object/%s/%s", url.PathEscape(c.config.Bucket), escapeKey(key))

	err := c.execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)
		req.Header.Set("Content-Type", contentType)

		return c.doRequest(req, nil)
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	c.logger.Debug("blob uploaded",
		logger.StorageKey(key),
		logger.Int("size_bytes", len(data)))

	return c.PublicURL(key), nil
}

// Delete removes the blob under key. A missing key is not an error: delete
// is used for best-effort cleanup of replaced photos.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	path := fmt.Sprintf("/storage/v1/object/%s/%s", url.PathEscape(c.config.Bucket), escapeKey(key))

	err := c.execute(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.config.BaseURL+path, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)

		return c.doRequest(req, nil)
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil
		}
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

// List returns every key under the given prefix. The storage list endpoint
// is per-directory (folders come back without an object ID), so List walks
// subfolders recursively and paginates within each.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := c.listDir(ctx, strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return keys, nil
}

func (c *Client) listDir(ctx context.Context, dir string) ([]string, error) {
	const pageSize = 100

	var keys []string
	offset := 0

	for {
		objects, err := c.listPage(ctx, dir, pageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, obj := range objects {
			if obj.Name == "" {
				continue
			}
			full := obj.Name
			if dir != "" {
				full = dir + "/" + obj.Name
			}
			if obj.ID == "" {
				// Folder entry.
				sub, err := c.listDir(ctx, full)
				if err != nil {
					return nil, err
				}
				keys = append(keys, sub...)
				continue
			}
			keys = append(keys, full)
		}

		if len(objects) < pageSize {
			return keys, nil
		}
		offset += pageSize
	}
}

// listPage fetches one page of object entries in a directory.
func (c *Client) listPage(ctx context.Context, prefix string, limit, offset int) ([]objectDTO, error) {
	body := map[string]interface{}{
		"prefix": prefix,
		"limit":  limit,
		"offset": offset,
		"sortBy": map[string]string{"column": "name", "order": "asc"},
	}

	path := fmt.Sprintf("/storage/v1/object/list/%s", url.PathEscape(c.config.Bucket))

	var objects []objectDTO
	err := c.execute(ctx, func(ctx context.Context) error {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal body: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(jsonBody))
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)
		req.Header.Set("Content-Type", "application/json")

		objects = objects[:0]
		return c.doRequest(req, &objects)
	})
	if err != nil {
		return nil, err
	}

	return objects, nil
}

// PublicURL returns the durable public URL for a key.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		c.config.BaseURL, url.PathEscape(c.config.Bucket), escapeKey(key))
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// execute runs fn through the circuit breaker and retrier.
func (c *Client) execute(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, fn)
	})
}

// doRequest performs a single HTTP request and decodes the response into
// result when non-nil. Server errors are marked retryable, client errors
// permanent.
func (c *Client) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var parsed APIError
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Message != "" {
			parsed.StatusCode = resp.StatusCode
			apiErr = &parsed
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return retry.Retryable(apiErr)
		}
		return retry.Permanent(apiErr)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
	}

	return nil
}

// escapeKey escapes each path segment of a storage key.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the Supabase Storage API is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/storage/v1/bucket/"+url.PathEscape(c.config.Bucket), nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)

	return c.doRequest(req, nil) == nil
}

// ClientStatus describes the client's fault-tolerance state.
type ClientStatus struct {
	CircuitBreakerState string
	IsHealthy           bool
}

// Status returns the current status of the client.
func (c *Client) Status(ctx context.Context) ClientStatus {
	return ClientStatus{
		CircuitBreakerState: c.circuitBreaker.State().String(),
		IsHealthy:           c.IsHealthy(ctx),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DTO
// ══════════════════════════════════════════════════════════════════════════════

// objectDTO is one entry from the storage list endpoint.
type objectDTO struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}
