// Package testutil provides testing utilities for the grotto client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of one mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockService is a configurable mock of the backing data services: info,
// segmentation, l2cache, materialize, annotation, schema, and state
// endpoints all hang off one server.
type MockService struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockService creates a mock service deployment.
func NewMockService() *MockService {
	mock := &MockService{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()

		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockService) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockService) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockService) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockService) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetDatastackInfo configures the info service endpoint for a datastack.
func (m *MockService) SetDatastackInfo(datastack, segmentationTable, alignedVolume string) {
	body := fmt.Sprintf(`{
		"segmentation_source": "graphene://https://data.example.org/segmentation/table/%s",
		"aligned_volume": {"name": %q},
		"viewer_site": "https://neuroglancer.example.org"
	}`, segmentationTable, alignedVolume)
	m.SetResponse(fmt.Sprintf("/info/api/v2/datastack/full/%s", datastack), NewHealthyResponse(body))
}

// SetRootResponse configures the chunked-graph root endpoint for one node.
func (m *MockService) SetRootResponse(table string, nodeID, rootID uint64) {
	path := fmt.Sprintf("/segmentation/api/v1/table/%s/node/%d/root", table, nodeID)
	m.SetResponse(path, NewHealthyResponse(fmt.Sprintf(`{"root_id": %d}`, rootID)))
}

// SetLeavesResponse configures the chunked-graph leaves endpoint for one
// root.
func (m *MockService) SetLeavesResponse(table string, rootID uint64, leaves string) {
	path := fmt.Sprintf("/segmentation/api/v1/table/%s/node/%d/leaves", table, rootID)
	m.SetResponse(path, NewHealthyResponse(fmt.Sprintf(`{"leaf_ids": %s}`, leaves)))
}

// SetL2DataResponse configures the l2cache attributes endpoint.
func (m *MockService) SetL2DataResponse(table string, body string) {
	path := fmt.Sprintf("/l2cache/api/v1/table/%s/attributes", table)
	m.SetResponse(path, NewHealthyResponse(body))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockService) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockService) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// defaultHandler provides healthy JSON responses for unconfigured paths.
func (m *MockService) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-RateLimit-Remaining", "100")
	w.Header().Set("X-RateLimit-Reset", "60")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if r.Header.Get("If-None-Match") != "" {
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", `"default-etag"`)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// NewConditionalHandler serves data with a stable ETag and answers
// If-None-Match revalidations with 304.
func NewConditionalHandler(etag, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "100")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(1*time.Second).Format(http.TimeFormat))

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}

// NewHealthyResponse creates a standard 200 OK response with budget and
// cache headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"ETag":                  `"test-etag-123"`,
			"Expires":               time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "100",
			"X-RateLimit-Reset":     "60",
			"Expires":               time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "5",
			"X-RateLimit-Reset":     "30",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "95",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}
