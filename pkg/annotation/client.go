// Package annotation reads and writes annotations on staged annotation
// tables.
package annotation

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/grotto-neuro/grotto/pkg/logging"
)

// API is the transport the annotation client needs, satisfied by
// *client.Client.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
	PostJSON(ctx context.Context, path string, body any, v any) error
	DeleteJSON(ctx context.Context, path string, body any, v any) error
}

// Client manages annotations for one aligned volume.
type Client struct {
	api           API
	alignedVolume string
	logger        zerolog.Logger
}

// New creates an annotation client for the given aligned volume.
func New(api API, alignedVolume string) *Client {
	return &Client{
		api:           api,
		alignedVolume: alignedVolume,
		logger:        logging.NewLogger("annotation"),
	}
}

// Annotation is one annotation row. Fields beyond the ID depend on the
// table's schema, so they stay dynamic.
type Annotation map[string]any

// ID returns the annotation's numeric ID, or 0 when unset.
func (a Annotation) ID() uint64 {
	switch v := a["id"].(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case int64:
		return uint64(v)
	default:
		return 0
	}
}

func (c *Client) tablePath(table, suffix string) string {
	return fmt.Sprintf("/annotation/api/v2/aligned_volume/%s/table/%s/%s", c.alignedVolume, table, suffix)
}

// TableInfo describes an annotation table.
type TableInfo struct {
	TableName     string `json:"table_name"`
	SchemaType    string `json:"schema_type"`
	Description   string `json:"description"`
	ValidRowCount int    `json:"valid_row_count"`
	CreatedBy     string `json:"created_by"`
}

// ListTables lists the annotation tables of the aligned volume.
func (c *Client) ListTables(ctx context.Context) ([]string, error) {
	path := fmt.Sprintf("/annotation/api/v2/aligned_volume/%s/tables", c.alignedVolume)
	var tables []string
	if err := c.api.GetJSON(ctx, path, nil, &tables); err != nil {
		return nil, fmt.Errorf("list tables of %s: %w", c.alignedVolume, err)
	}
	return tables, nil
}

// GetTableInfo returns the metadata of one annotation table.
func (c *Client) GetTableInfo(ctx context.Context, table string) (*TableInfo, error) {
	path := fmt.Sprintf("/annotation/api/v2/aligned_volume/%s/table/%s", c.alignedVolume, table)
	var info TableInfo
	if err := c.api.GetJSON(ctx, path, nil, &info); err != nil {
		return nil, fmt.Errorf("get table %s: %w", table, err)
	}
	return &info, nil
}

// GetAnnotations fetches annotations by ID from one table.
func (c *Client) GetAnnotations(ctx context.Context, table string, ids []uint64) ([]Annotation, error) {
	joined := make([]string, len(ids))
	for i, id := range ids {
		joined[i] = strconv.FormatUint(id, 10)
	}
	query := url.Values{}
	query.Set("annotation_ids", strings.Join(joined, ","))

	var out []Annotation
	if err := c.api.GetJSON(ctx, c.tablePath(table, "annotations"), query, &out); err != nil {
		return nil, fmt.Errorf("get %d annotations from %s: %w", len(ids), table, err)
	}
	return out, nil
}

// PostAnnotations inserts annotations into one table and returns the
// assigned IDs in input order.
func (c *Client) PostAnnotations(ctx context.Context, table string, annotations []Annotation) ([]uint64, error) {
	body := map[string]any{"annotations": annotations}
	var ids []uint64
	if err := c.api.PostJSON(ctx, c.tablePath(table, "annotations"), body, &ids); err != nil {
		return nil, fmt.Errorf("post %d annotations to %s: %w", len(annotations), table, err)
	}
	if len(ids) != len(annotations) {
		return nil, fmt.Errorf("posted %d annotations to %s but got %d ids back", len(annotations), table, len(ids))
	}
	c.logger.Info().
		Str("table", table).
		Int("count", len(ids)).
		Msg("Annotations created")
	return ids, nil
}

// DeleteAnnotations marks annotations as deleted in one table and returns
// the IDs that were actually removed.
func (c *Client) DeleteAnnotations(ctx context.Context, table string, ids []uint64) ([]uint64, error) {
	body := map[string]any{"annotation_ids": ids}
	var deleted []uint64
	if err := c.api.DeleteJSON(ctx, c.tablePath(table, "annotations"), body, &deleted); err != nil {
		return nil, fmt.Errorf("delete %d annotations from %s: %w", len(ids), table, err)
	}
	c.logger.Info().
		Str("table", table).
		Int("count", len(deleted)).
		Msg("Annotations deleted")
	return deleted, nil
}
