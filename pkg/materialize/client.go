// Package materialize queries materialized annotation tables. Query results
// come back as Arrow IPC streams, optionally zstd-compressed, and are
// decoded into Frames.
package materialize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/grotto-neuro/grotto/pkg/logging"
)

const acceptArrow = "application/vnd.apache.arrow.stream"

// API is the transport the materialization client needs, satisfied by
// *client.Client. Query responses are Arrow streams rather than JSON, so
// this client needs raw request access on top of GetJSON.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
	Do(req *http.Request) (*http.Response, error)
	Server() string
}

// Client queries materialized tables for one datastack.
type Client struct {
	api       API
	datastack string
	logger    zerolog.Logger
}

// New creates a materialization client for the given datastack.
func New(api API, datastack string) *Client {
	return &Client{
		api:       api,
		datastack: datastack,
		logger:    logging.NewLogger("materialize"),
	}
}

// Datastack returns the datastack this client is bound to.
func (c *Client) Datastack() string {
	return c.datastack
}

// QueryParams selects and filters rows of a materialized table.
type QueryParams struct {
	// Version pins the materialization version. Zero means the most
	// recent version, resolved with an extra request.
	Version int

	// SelectColumns limits the returned columns. Empty means all.
	SelectColumns []string

	// FilterEqual keeps rows where column == value.
	FilterEqual map[string]any

	// FilterIn keeps rows where the column value is in the given set.
	FilterIn map[string][]any

	// Limit caps the number of returned rows. Zero means no cap.
	Limit int

	// Timestamp queries the table as of a point in time instead of the
	// materialization version's own timestamp.
	Timestamp time.Time

	// SplitPositions asks the service to return position columns split
	// into _x/_y/_z components instead of packed arrays.
	SplitPositions bool

	// DesiredResolution rescales position columns to the given voxel
	// resolution in nanometers.
	DesiredResolution []float64
}

// Versions lists the materialization versions available for the datastack.
func (c *Client) Versions(ctx context.Context) ([]int, error) {
	path := fmt.Sprintf("/materialize/api/v3/datastack/%s/versions", c.datastack)
	var versions []int
	if err := c.api.GetJSON(ctx, path, nil, &versions); err != nil {
		return nil, fmt.Errorf("list versions of %s: %w", c.datastack, err)
	}
	return versions, nil
}

// LatestVersion returns the highest materialization version.
func (c *Client) LatestVersion(ctx context.Context) (int, error) {
	versions, err := c.Versions(ctx)
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, fmt.Errorf("datastack %s has no materialization versions", c.datastack)
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

// QueryTable runs a filtered query against one materialized table and
// decodes the Arrow response into a Frame.
func (c *Client) QueryTable(ctx context.Context, table string, params QueryParams) (*Frame, error) {
	version := params.Version
	if version == 0 {
		latest, err := c.LatestVersion(ctx)
		if err != nil {
			return nil, err
		}
		version = latest
	}

	payload := map[string]any{"table": table}
	if len(params.SelectColumns) > 0 {
		payload["select_columns"] = params.SelectColumns
	}
	if len(params.FilterEqual) > 0 {
		payload["filter_equal_dict"] = map[string]any{table: params.FilterEqual}
	}
	if len(params.FilterIn) > 0 {
		payload["filter_in_dict"] = map[string]any{table: params.FilterIn}
	}
	if params.Limit > 0 {
		payload["limit"] = params.Limit
	}
	if !params.Timestamp.IsZero() {
		payload["timestamp"] = params.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if len(params.DesiredResolution) > 0 {
		payload["desired_resolution"] = params.DesiredResolution
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	query := url.Values{}
	query.Set("arrow_format", "true")
	if params.SplitPositions {
		query.Set("split_positions", "true")
	}

	u := fmt.Sprintf("%s/materialize/api/v3/datastack/%s/version/%d/query?%s",
		c.api.Server(), c.datastack, version, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", acceptArrow)
	req.Header.Set("Accept-Encoding", "zstd")

	start := time.Now()
	resp, err := c.api.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("query table %s: status %d: %s", table, resp.StatusCode, string(msg))
	}

	stream := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "zstd" {
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer dec.Close()
		stream = dec
	}

	frame, err := decodeFrame(stream)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", table, err)
	}

	c.logger.Debug().
		Str("table", table).
		Int("version", version).
		Int("rows", frame.NumRows()).
		Dur("duration", time.Since(start)).
		Msg("Table query complete")

	return frame, nil
}
