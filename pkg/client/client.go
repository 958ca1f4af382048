// Package client provides the core HTTP client shared by all grotto
// sub-clients, with request budgeting, response caching, retry, and error
// handling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/grotto-neuro/grotto/pkg/budget"
	"github.com/grotto-neuro/grotto/pkg/cache"
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grotto_requests_total",
		Help: "Total service requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grotto_request_duration_seconds",
		Help:    "Service request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grotto_errors_total",
		Help: "Total service errors by class",
	}, []string{"class"})
)

// Client is the shared HTTP client for the backing data services.
type Client struct {
	httpClient *http.Client
	redis      *redis.Client
	budget     *budget.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for response caching and shared budget state
	Redis *redis.Client

	// Server is the base URL of the service deployment
	// (e.g. "https://global.daf-apis.com")
	Server string

	// AuthToken is the bearer token for authenticated endpoints.
	// Empty for public datastacks.
	AuthToken string

	// UserAgent identifies the application to the services.
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redisClient *redis.Client, server string) Config {
	return Config{
		Redis:          redisClient,
		Server:         server,
		UserAgent:      "grotto/0.1.0",
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.Server == "" {
		return nil, fmt.Errorf("server address is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:  cfg.Redis,
		budget: budget.NewTracker(cfg.Redis, logger),
		cache:  cache.NewManager(cfg.Redis),
		config: cfg,
		logger: logger,
	}, nil
}

// Do performs an HTTP request with budgeting, caching, retry, and error
// handling. This is the core request method all sub-clients funnel through.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check request budget
	allowed, err := c.budget.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Budget check failed")
		return nil, fmt.Errorf("budget check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by budget tracker")
		requestsTotal.WithLabelValues(endpoint, "quota_blocked").Inc()
		return nil, ErrQuotaExceeded
	}

	// Step 2: Check cache (GET only; query results and graph lookups are
	// immutable within a version window, writes never are)
	var cacheKey cache.Key
	var cachedEntry *cache.Entry
	cacheable := req.Method == http.MethodGet

	if cacheable {
		cacheKey = cache.Key{
			Service: serviceFromPath(endpoint),
			Path:    endpoint,
			Query:   req.URL.Query(),
		}

		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}

		// Step 3: Make conditional request if cache hit
		if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	// Step 4: Set identity headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	// Step 5: Execute with retry
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing service request")

	var resp *http.Response

	retryErr := retryWithBackoff(ctx, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		// Update budget from headers on every response
		if err := c.budget.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update budget from headers")
		}

		// 304 Not Modified is success, not an error
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass := classify(resp.StatusCode, nil)
			errorsTotal.WithLabelValues(string(errClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Service request error")

			if shouldRetry(errClass) {
				apiErr := &APIError{
					StatusCode: resp.StatusCode,
					Class:      errClass,
					Endpoint:   endpoint,
					Message:    resp.Status,
				}
				resp.Body.Close() // Close the body before retrying
				return apiErr
			}

			// Don't retry client errors - return success, caller handles status
			return nil
		}

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	}, func(err error) ErrorClass {
		if apiErr, ok := err.(*APIError); ok {
			return apiErr.Class
		}
		return ErrorClassNetwork
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	// Step 6: Serve 304 from cache
	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		requestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Update cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// Get performs a GET request against a service path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := c.config.Server + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON performs a GET request and decodes the JSON response into v.
// Non-2xx statuses are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, v any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, path, v)
}

// PostJSON performs a POST request with a JSON body and decodes the JSON
// response into v. Pass nil v to discard the response body.
func (c *Client) PostJSON(ctx context.Context, path string, body any, v any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, v)
}

// DeleteJSON performs a DELETE request with a JSON body and decodes the
// JSON response into v.
func (c *Client) DeleteJSON(ctx context.Context, path string, body any, v any) error {
	return c.sendJSON(ctx, http.MethodDelete, path, body, v)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Server+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeJSON(resp, path, v)
}

// decodeJSON converts an HTTP response into the caller's type, turning
// non-2xx statuses into *APIError.
func decodeJSON(resp *http.Response, endpoint string, v any) error {
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Class:      classify(resp.StatusCode, nil),
			Endpoint:   endpoint,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if v == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// serviceFromPath derives the service name from the first path segment,
// e.g. "/segmentation/api/v1/..." -> "segmentation".
func serviceFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.Index(trimmed, "/"); i > 0 {
		return trimmed[:i]
	}
	return trimmed
}

// Server returns the configured base URL.
func (c *Client) Server() string {
	return c.config.Server
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
