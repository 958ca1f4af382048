// Package state stores and retrieves neuroglancer viewer states in the
// JSON state service.
package state

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/grotto-neuro/grotto/pkg/logging"
)

// API is the transport the state client needs, satisfied by
// *client.Client.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
	PostJSON(ctx context.Context, path string, body any, v any) error
}

// Client stores and retrieves viewer states.
type Client struct {
	api    API
	logger zerolog.Logger
}

// New creates a state client.
func New(api API) *Client {
	return &Client{api: api, logger: logging.NewLogger("state")}
}

// State is a neuroglancer viewer state document.
type State map[string]any

// GetState fetches a stored viewer state by ID.
func (c *Client) GetState(ctx context.Context, id uint64) (State, error) {
	var st State
	path := fmt.Sprintf("/nglstate/api/v1/%d", id)
	if err := c.api.GetJSON(ctx, path, nil, &st); err != nil {
		return nil, fmt.Errorf("get state %d: %w", id, err)
	}
	return st, nil
}

// UploadState stores a viewer state and returns its new ID. The service
// responds with the URL of the stored state, the ID is its last segment.
func (c *Client) UploadState(ctx context.Context, st State) (uint64, error) {
	var location string
	if err := c.api.PostJSON(ctx, "/nglstate/api/v1/post", st, &location); err != nil {
		return 0, fmt.Errorf("upload state: %w", err)
	}

	id, err := idFromLocation(location)
	if err != nil {
		return 0, fmt.Errorf("upload state: %w", err)
	}

	c.logger.Info().Uint64("state_id", id).Msg("Viewer state uploaded")
	return id, nil
}

// BuildURL renders a shareable neuroglancer link for a stored state.
func (c *Client) BuildURL(ngl string, server string, id uint64) string {
	return fmt.Sprintf("%s/#!%s/nglstate/api/v1/%d", strings.TrimSuffix(ngl, "/"), server, id)
}

func idFromLocation(location string) (uint64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(location), "/")
	i := strings.LastIndex(trimmed, "/")
	id, err := strconv.ParseUint(trimmed[i+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("state location %q has no trailing id", location)
	}
	return id, nil
}
