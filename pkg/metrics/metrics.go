// Package metrics provides the central Prometheus registry reference for
// grotto. All metrics are defined in their respective packages (client,
// cache, budget, dispatch) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by grotto.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Budget Metrics (pkg/budget):
//   - grotto_budget_remaining (Gauge): Requests remaining in the current quota window
//   - grotto_budget_blocks_total (Counter): Requests blocked due to critical quota
//   - grotto_budget_throttles_total (Counter): Requests throttled due to low quota
//
// Cache Metrics (pkg/cache):
//   - grotto_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - grotto_cache_misses_total (Counter): Cache misses
//   - grotto_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - grotto_304_responses_total (Counter): 304 Not Modified responses
//   - grotto_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - grotto_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - grotto_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - grotto_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - grotto_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - grotto_retries_total{error_class} (Counter): Retry attempts by error class
//   - grotto_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - grotto_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Dispatch Metrics (pkg/dispatch):
//   - grotto_dispatch_batches_total{shape, mode} (Counter): Batches by output shape and execution mode
//   - grotto_dispatch_items_total{shape} (Counter): Items processed by output shape
//   - grotto_dispatch_failures_total{shape} (Counter): Failed batches by output shape
//   - grotto_dispatch_batch_duration_seconds{shape} (Histogram): Batch wall-clock duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(grotto_cache_hits_total[5m])) /
//   (sum(rate(grotto_cache_hits_total[5m])) + sum(rate(grotto_cache_misses_total[5m])))
//
//   # Quota Status
//   grotto_budget_remaining < 20
//
//   # Request Error Rate
//   rate(grotto_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(grotto_request_duration_seconds_bucket[5m]))
//
//   # Batch Throughput by Shape
//   rate(grotto_dispatch_items_total[5m])
