// Package grotto is the top-level convenience client for CAVE-style
// connectomics deployments. It composes the per-service sub-clients behind
// one datastack-scoped entry point and adds batch execution over them.
package grotto

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/grotto-neuro/grotto/pkg/annotation"
	"github.com/grotto-neuro/grotto/pkg/chunkedgraph"
	"github.com/grotto-neuro/grotto/pkg/client"
	"github.com/grotto-neuro/grotto/pkg/dispatch"
	"github.com/grotto-neuro/grotto/pkg/l2cache"
	"github.com/grotto-neuro/grotto/pkg/logging"
	"github.com/grotto-neuro/grotto/pkg/materialize"
	"github.com/grotto-neuro/grotto/pkg/schema"
	"github.com/grotto-neuro/grotto/pkg/state"
)

// Options configures a grotto client.
type Options struct {
	// Server is the base URL of the deployment.
	Server string

	// Datastack names the dataset. Its segmentation table and aligned
	// volume are resolved through the info service unless overridden.
	Datastack string

	// AuthToken is the bearer token. Empty for public datastacks.
	AuthToken string

	// Redis backs the response cache and the shared request budget.
	Redis *redis.Client

	// Workers sets the batch concurrency. 1 (the default) runs batches
	// sequentially.
	Workers int

	// Progress enables progress logging on batch calls.
	Progress bool

	// SegmentationTable and AlignedVolume skip the info service lookup
	// when both are set.
	SegmentationTable string
	AlignedVolume     string

	// UserAgent and Timeout override the transport defaults.
	UserAgent string
	Timeout   time.Duration
}

// Client is the datastack-scoped entry point.
type Client struct {
	api  *client.Client
	info DatastackInfo

	chunkedgraph *chunkedgraph.Client
	l2cache      *l2cache.Client
	materialize  *materialize.Client
	annotation   *annotation.Client
	schema       *schema.Client
	state        *state.Client

	dispatchCfg dispatch.Config
	logger      zerolog.Logger
}

// New creates a client for one datastack. The context covers the info
// service lookup performed when table overrides are not given.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Datastack == "" {
		return nil, fmt.Errorf("datastack is required")
	}

	cfg := client.DefaultConfig(opts.Redis, opts.Server)
	cfg.AuthToken = opts.AuthToken
	if opts.UserAgent != "" {
		cfg.UserAgent = opts.UserAgent
	}
	if opts.Timeout > 0 {
		cfg.Timeout = opts.Timeout
	}

	api, err := client.New(cfg)
	if err != nil {
		return nil, err
	}

	info := DatastackInfo{
		Datastack:         opts.Datastack,
		SegmentationTable: opts.SegmentationTable,
		AlignedVolume:     opts.AlignedVolume,
	}
	if info.SegmentationTable == "" || info.AlignedVolume == "" {
		resolved, err := fetchDatastackInfo(ctx, api, opts.Datastack)
		if err != nil {
			return nil, err
		}
		if info.SegmentationTable == "" {
			info.SegmentationTable = resolved.SegmentationTable
		}
		if info.AlignedVolume == "" {
			info.AlignedVolume = resolved.AlignedVolume
		}
		info.ViewerSite = resolved.ViewerSite
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Client{
		api:          api,
		info:         info,
		chunkedgraph: chunkedgraph.New(api, info.SegmentationTable),
		l2cache:      l2cache.New(api, info.SegmentationTable),
		materialize:  materialize.New(api, opts.Datastack),
		annotation:   annotation.New(api, info.AlignedVolume),
		schema:       schema.New(api),
		state:        state.New(api),
		dispatchCfg:  dispatch.Config{Workers: workers, Progress: opts.Progress},
		logger:       logging.NewLogger("grotto"),
	}, nil
}

// Info returns the resolved datastack configuration.
func (c *Client) Info() DatastackInfo {
	return c.info
}

// Chunkedgraph returns the chunked-graph sub-client.
func (c *Client) Chunkedgraph() *chunkedgraph.Client { return c.chunkedgraph }

// L2Cache returns the level-2 cache sub-client.
func (c *Client) L2Cache() *l2cache.Client { return c.l2cache }

// Materialize returns the materialization sub-client.
func (c *Client) Materialize() *materialize.Client { return c.materialize }

// Annotation returns the annotation sub-client.
func (c *Client) Annotation() *annotation.Client { return c.annotation }

// Schema returns the schema sub-client.
func (c *Client) Schema() *schema.Client { return c.schema }

// State returns the viewer-state sub-client.
func (c *Client) State() *state.Client { return c.state }

// Close releases transport resources.
func (c *Client) Close() error {
	return c.api.Close()
}

// GetRoot returns the current root ID for a supervoxel.
func (c *Client) GetRoot(ctx context.Context, supervoxelID uint64) (uint64, error) {
	return c.chunkedgraph.GetRoot(ctx, supervoxelID)
}

// GetRoots returns the current root IDs for a set of supervoxels.
func (c *Client) GetRoots(ctx context.Context, supervoxelIDs []uint64) ([]uint64, error) {
	return c.chunkedgraph.GetRoots(ctx, supervoxelIDs)
}

// GetLeaves returns the supervoxels under a root.
func (c *Client) GetLeaves(ctx context.Context, rootID uint64) ([]uint64, error) {
	return c.chunkedgraph.GetLeaves(ctx, rootID)
}

// GetL2Data returns level-2 cache attributes for a set of level-2 nodes.
func (c *Client) GetL2Data(ctx context.Context, l2IDs []uint64, attributes []string) (map[uint64]l2cache.Attributes, error) {
	return c.l2cache.GetL2Data(ctx, l2IDs, attributes)
}

// QueryParams aliases the materialization query parameters so callers of
// the facade don't need the sub-client package for common queries.
type QueryParams = materialize.QueryParams

// QueryTable queries one materialized table. When positions are split, the
// standard point columns are renamed to plain x/y/z.
func (c *Client) QueryTable(ctx context.Context, table string, params materialize.QueryParams) (*materialize.Frame, error) {
	frame, err := c.materialize.QueryTable(ctx, table, params)
	if err != nil {
		return nil, err
	}
	if params.SplitPositions {
		frame.RenameColumns(positionRenames)
	}
	return frame, nil
}

// positionRenames maps the split position columns of the common point
// schemas to bare axis names.
var positionRenames = map[string]string{
	"pt_position_x": "x",
	"pt_position_y": "y",
	"pt_position_z": "z",
}

// GetState fetches a stored viewer state.
func (c *Client) GetState(ctx context.Context, id uint64) (state.State, error) {
	return c.state.GetState(ctx, id)
}

// UploadState stores a viewer state and returns its ID.
func (c *Client) UploadState(ctx context.Context, st state.State) (uint64, error) {
	return c.state.UploadState(ctx, st)
}
