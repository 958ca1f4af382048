// Package l2cache accesses the level-2 cache service, which stores
// precomputed attributes (size, representative coordinate, bounds) for
// level-2 chunks of the segmentation graph.
package l2cache

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/grotto-neuro/grotto/pkg/logging"
	"github.com/rs/zerolog"
)

// API is the transport the L2 cache client needs, satisfied by
// *client.Client.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
}

// Attributes holds the cached attributes of one level-2 chunk. Fields are
// pointers because the cache may not have computed every attribute yet.
type Attributes struct {
	// RepCoordNM is the representative coordinate in nanometers ([x y z]).
	RepCoordNM []float64 `json:"rep_coord_nm"`

	// SizeNM3 is the chunk volume in cubic nanometers.
	SizeNM3 *float64 `json:"size_nm3"`

	// AreaNM2 is the surface area in square nanometers.
	AreaNM2 *float64 `json:"area_nm2"`

	// MaxDTNM is the maximum distance transform value in nanometers.
	MaxDTNM *float64 `json:"max_dt_nm"`

	// MeanDTNM is the mean distance transform value in nanometers.
	MeanDTNM *float64 `json:"mean_dt_nm"`

	// PCAVals are the principal component magnitudes.
	PCAVals []float64 `json:"pca_val"`
}

// Entry is the tabular form of one level-2 chunk's attributes, with the
// representative coordinate unpacked into X/Y/Z columns. Coordinates are nil
// when the cache has no representative coordinate for the chunk.
type Entry struct {
	L2ID uint64
	X    *float64
	Y    *float64
	Z    *float64
	Attributes
}

// Client queries the L2 cache service for one segmentation table.
type Client struct {
	api    API
	table  string
	logger zerolog.Logger
}

// New creates an L2 cache client for the given segmentation table.
func New(api API, table string) *Client {
	return &Client{
		api:    api,
		table:  table,
		logger: logging.NewLogger("l2cache"),
	}
}

// GetL2Data returns cached attributes for a set of level-2 chunk IDs. When
// attributes is empty the service returns everything it has per chunk.
func (c *Client) GetL2Data(ctx context.Context, l2IDs []uint64, attributes []string) (map[uint64]Attributes, error) {
	ids := make([]string, len(l2IDs))
	for i, id := range l2IDs {
		ids[i] = strconv.FormatUint(id, 10)
	}

	query := url.Values{"l2_ids": []string{strings.Join(ids, ",")}}
	if len(attributes) > 0 {
		query.Set("attributes", strings.Join(attributes, ","))
	}

	path := fmt.Sprintf("/l2cache/api/v1/table/%s/attributes", c.table)

	// The service keys the response by decimal ID strings.
	raw := make(map[string]Attributes)
	if err := c.api.GetJSON(ctx, path, query, &raw); err != nil {
		return nil, fmt.Errorf("get l2 data: %w", err)
	}

	out := make(map[uint64]Attributes, len(raw))
	for idStr, attrs := range raw {
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse l2 id %q: %w", idStr, err)
		}
		out[id] = attrs
	}

	c.logger.Debug().
		Int("requested", len(l2IDs)).
		Int("returned", len(out)).
		Msg("Fetched l2 attributes")

	return out, nil
}

// Tabulate converts an attribute map into entries sorted by L2 ID, with the
// representative coordinate unpacked into X/Y/Z.
func Tabulate(data map[uint64]Attributes) []Entry {
	entries := make([]Entry, 0, len(data))
	for id, attrs := range data {
		e := Entry{L2ID: id, Attributes: attrs}
		if len(attrs.RepCoordNM) == 3 {
			e.X = &attrs.RepCoordNM[0]
			e.Y = &attrs.RepCoordNM[1]
			e.Z = &attrs.RepCoordNM[2]
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].L2ID < entries[j].L2ID
	})

	return entries
}
