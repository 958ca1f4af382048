package grotto

import (
	"context"

	"github.com/grotto-neuro/grotto/pkg/dispatch"
	"github.com/grotto-neuro/grotto/pkg/l2cache"
	"github.com/grotto-neuro/grotto/pkg/materialize"
)

// batchConfig derives the per-call dispatch configuration, labeling the
// progress output with the batch kind.
func (c *Client) batchConfig(label string) dispatch.Config {
	cfg := c.dispatchCfg
	if cfg.Progress && cfg.Sink == nil {
		cfg.Sink = dispatch.NewLogSink(label)
	}
	return cfg
}

// GetRootsBatch resolves the root for each supervoxel individually and
// returns supervoxel -> root. Duplicate supervoxel IDs are rejected.
func (c *Client) GetRootsBatch(ctx context.Context, supervoxelIDs []uint64) (map[uint64]uint64, error) {
	return dispatch.Map(ctx, c.batchConfig("roots"), supervoxelIDs, c.chunkedgraph.GetRoot)
}

// GetLeavesBatch fetches the supervoxels under each root and returns
// (root, leaf) rows grouped by root in input order.
func (c *Client) GetLeavesBatch(ctx context.Context, rootIDs []uint64) ([]dispatch.Row[uint64, uint64], error) {
	return dispatch.Table(ctx, c.batchConfig("leaves"), rootIDs, c.chunkedgraph.GetLeaves)
}

// GetL2DataBatch fetches level-2 cache attributes one node per task and
// returns l2 id -> attributes. Duplicate IDs are rejected.
func (c *Client) GetL2DataBatch(ctx context.Context, l2IDs []uint64, attributes []string) (map[uint64]l2cache.Attributes, error) {
	op := func(ctx context.Context, l2ID uint64) (l2cache.Attributes, error) {
		data, err := c.l2cache.GetL2Data(ctx, []uint64{l2ID}, attributes)
		if err != nil {
			return l2cache.Attributes{}, err
		}
		return data[l2ID], nil
	}
	return dispatch.Map(ctx, c.batchConfig("l2data"), l2IDs, op)
}

// QueryTablesBatch queries several materialized tables with the same
// parameters and returns one frame per table in input order.
func (c *Client) QueryTablesBatch(ctx context.Context, tables []string, params materialize.QueryParams) ([]*materialize.Frame, error) {
	op := func(ctx context.Context, table string) (*materialize.Frame, error) {
		return c.QueryTable(ctx, table, params)
	}
	return dispatch.List(ctx, c.batchConfig("query"), tables, op)
}
