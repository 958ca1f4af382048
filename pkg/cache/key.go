package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached service response.
type Key struct {
	// Service is the backing service name (e.g. "chunkedgraph", "materialize").
	Service string

	// Path is the request path (e.g. "/segmentation/api/v1/table/minnie3_v1/node/123/leaves").
	Path string

	// Query are the request query parameters.
	Query url.Values

	// Datastack scopes the key when the same path is served per datastack.
	Datastack string
}

// String generates a deterministic cache key string.
// Format: grotto:service:path:query1=val1:query2=val2:ds=<datastack>
//
// Example:
//
//	grotto:l2cache:l2cache/api/v1/table/minnie3_v1/attributes:l2_ids=123:ds=minnie65
func (k Key) String() string {
	parts := []string{"grotto"}

	if k.Service != "" {
		parts = append(parts, k.Service)
	}

	path := strings.Trim(k.Path, "/")
	if path != "" {
		parts = append(parts, path)
	}

	// Query params sorted for determinism
	if len(k.Query) > 0 {
		keys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Query.Get(key)))
		}
	}

	if k.Datastack != "" {
		parts = append(parts, fmt.Sprintf("ds=%s", k.Datastack))
	}

	return strings.Join(parts, ":")
}
