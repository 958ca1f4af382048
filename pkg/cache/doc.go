// Package cache provides response caching for the backing data services
// with a Redis backend.
//
// Materialization versions, chunked-graph lookups, and schema definitions
// are served with Expires/ETag headers; the cache honors them so repeated
// queries within a version window never hit the network twice:
//
// - TTL derived from the Expires response header
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Prometheus metrics for observability
// - Deterministic cache key generation per service and endpoint
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{
//		Service: "chunkedgraph",
//		Path:    "/segmentation/api/v1/table/minnie3_v1/node/864691135463611454/leaves",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the service
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// the service answers 304 if the cached body is still current
//	}
//
// # Metrics
//
//   - grotto_cache_hits_total{layer="redis"} - Cache hits
//   - grotto_cache_misses_total - Cache misses
//   - grotto_cache_size_bytes{layer="redis"} - Cache size
//   - grotto_304_responses_total - Conditional request successes
//   - grotto_cache_errors_total{operation} - Cache operation errors
package cache
