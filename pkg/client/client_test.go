package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNew_Validation(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			config: Config{
				Redis:     redisClient,
				Server:    "https://global.daf-apis.com",
				UserAgent: "TestApp/1.0.0 (test@example.com)",
			},
			expectError: false,
		},
		{
			name: "nil redis",
			config: Config{
				Server:    "https://global.daf-apis.com",
				UserAgent: "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    "redis client is required",
		},
		{
			name: "empty server",
			config: Config{
				Redis:     redisClient,
				UserAgent: "TestApp/1.0.0",
			},
			expectError: true,
			errorMsg:    "server address is required",
		},
		{
			name: "empty user agent",
			config: Config{
				Redis:  redisClient,
				Server: "https://global.daf-apis.com",
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if tt.expectError {
				if err == nil {
					t.Fatal("New() should return error")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("error = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("New() error = %v", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer redisClient.Close()

	cfg := DefaultConfig(redisClient, "https://global.daf-apis.com")
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}

	if _, err := New(cfg); err != nil {
		t.Errorf("New(DefaultConfig()) error = %v", err)
	}
}

// newTestClient wires a client against a mock HTTP server and a test Redis.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	redisClient := setupTestRedis(t)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig(redisClient, server.URL)
	cfg.UserAgent = "grotto-test/0.0.1 (test@example.com)"

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestGetJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "grotto-test/0.0.1 (test@example.com)" {
			t.Errorf("User-Agent = %q, want configured value", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"root_id": 864691135463611454}`))
	}))

	var out struct {
		RootID uint64 `json:"root_id"`
	}
	err := c.GetJSON(context.Background(), "/segmentation/api/v1/table/minnie3_v1/node/123/root", nil, &out)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.RootID != 864691135463611454 {
		t.Errorf("RootID = %d, want 864691135463611454", out.RootID)
	}
}

func TestGetJSON_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "no such node", http.StatusNotFound)
	}))

	err := c.GetJSON(context.Background(), "/segmentation/api/v1/table/minnie3_v1/node/0/root", nil, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Class != ErrorClassClient {
		t.Errorf("Class = %v, want client", apiErr.Class)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1 (4xx must not be retried)", hits.Load())
	}
}

func TestGet_CachedResponseSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Expires", time.Now().Add(1*time.Hour).Format(http.TimeFormat))
		w.Write([]byte(`[1, 2, 3]`))
	}))

	ctx := context.Background()
	path := "/segmentation/api/v1/table/minnie3_v1/node/42/leaves"

	var first, second []int64
	if err := c.GetJSON(ctx, path, nil, &first); err != nil {
		t.Fatalf("first GetJSON() error = %v", err)
	}
	if err := c.GetJSON(ctx, path, nil, &second); err != nil {
		t.Fatalf("second GetJSON() error = %v", err)
	}

	// Second call is served on the conditional/cache path; the cached body
	// still answers even if the server is consulted for freshness.
	if len(second) != 3 {
		t.Errorf("cached response = %v, want [1 2 3]", second)
	}
}

func TestGetJSON_AuthTokenHeader(t *testing.T) {
	redisClient := setupTestRedis(t)

	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig(redisClient, server.URL)
	cfg.AuthToken = "secret-token"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := c.GetJSON(context.Background(), "/schema/api/v2/type", nil, nil); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestServiceFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/segmentation/api/v1/table/t/node/1/root", "segmentation"},
		{"/l2cache/api/v1/attributes", "l2cache"},
		{"/materialize/api/v3/query", "materialize"},
		{"schema", "schema"},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := serviceFromPath(tt.path); got != tt.want {
			t.Errorf("serviceFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
