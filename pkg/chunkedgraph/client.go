// Package chunkedgraph accesses the proofreadable segmentation graph
// service: root/leaf lookups over the supervoxel hierarchy.
package chunkedgraph

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/grotto-neuro/grotto/pkg/logging"
)

// API is the transport the chunked-graph client needs, satisfied by
// *client.Client.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
	PostJSON(ctx context.Context, path string, body any, v any) error
}

// Client queries the chunked-graph service for one segmentation table.
type Client struct {
	api    API
	table  string
	logger zerolog.Logger
}

// New creates a chunked-graph client for the given segmentation table.
func New(api API, table string) *Client {
	return &Client{
		api:    api,
		table:  table,
		logger: logging.NewLogger("chunkedgraph"),
	}
}

// Table returns the segmentation table this client is bound to.
func (c *Client) Table() string {
	return c.table
}

func (c *Client) nodePath(nodeID uint64, suffix string) string {
	return fmt.Sprintf("/segmentation/api/v1/table/%s/node/%d/%s", c.table, nodeID, suffix)
}

// GetRoot returns the current root ID for a supervoxel.
func (c *Client) GetRoot(ctx context.Context, supervoxelID uint64) (uint64, error) {
	var out struct {
		RootID uint64 `json:"root_id"`
	}
	if err := c.api.GetJSON(ctx, c.nodePath(supervoxelID, "root"), nil, &out); err != nil {
		return 0, fmt.Errorf("get root of %d: %w", supervoxelID, err)
	}
	return out.RootID, nil
}

// GetRoots returns the current root IDs for a set of supervoxels using the
// bulk endpoint. Result order matches input order.
func (c *Client) GetRoots(ctx context.Context, supervoxelIDs []uint64) ([]uint64, error) {
	body := map[string][]uint64{"node_ids": supervoxelIDs}

	var out struct {
		RootIDs []uint64 `json:"root_ids"`
	}
	path := fmt.Sprintf("/segmentation/api/v1/table/%s/roots", c.table)
	if err := c.api.PostJSON(ctx, path, body, &out); err != nil {
		return nil, fmt.Errorf("get roots: %w", err)
	}
	if len(out.RootIDs) != len(supervoxelIDs) {
		return nil, fmt.Errorf("get roots: got %d roots for %d supervoxels", len(out.RootIDs), len(supervoxelIDs))
	}
	return out.RootIDs, nil
}

// GetLeaves returns all supervoxel IDs under a root.
func (c *Client) GetLeaves(ctx context.Context, rootID uint64) ([]uint64, error) {
	var out struct {
		LeafIDs []uint64 `json:"leaf_ids"`
	}
	if err := c.api.GetJSON(ctx, c.nodePath(rootID, "leaves"), nil, &out); err != nil {
		return nil, fmt.Errorf("get leaves of %d: %w", rootID, err)
	}
	c.logger.Debug().
		Uint64("root_id", rootID).
		Int("leaves", len(out.LeafIDs)).
		Msg("Fetched leaves")
	return out.LeafIDs, nil
}

// GetChildren returns the direct children of a graph node.
func (c *Client) GetChildren(ctx context.Context, nodeID uint64) ([]uint64, error) {
	var out struct {
		ChildrenIDs []uint64 `json:"children_ids"`
	}
	if err := c.api.GetJSON(ctx, c.nodePath(nodeID, "children"), nil, &out); err != nil {
		return nil, fmt.Errorf("get children of %d: %w", nodeID, err)
	}
	return out.ChildrenIDs, nil
}

// GetL2Nodes returns the level-2 graph nodes under a root. These are the
// keys used by the L2 cache service.
func (c *Client) GetL2Nodes(ctx context.Context, rootID uint64) ([]uint64, error) {
	query := url.Values{"stop_layer": []string{"2"}}

	var out struct {
		LeafIDs []uint64 `json:"leaf_ids"`
	}
	if err := c.api.GetJSON(ctx, c.nodePath(rootID, "leaves"), query, &out); err != nil {
		return nil, fmt.Errorf("get l2 nodes of %d: %w", rootID, err)
	}
	return out.LeafIDs, nil
}
