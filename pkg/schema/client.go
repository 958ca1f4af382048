// Package schema fetches annotation schema definitions from the schema
// service.
package schema

import (
	"context"
	"fmt"
	"net/url"
)

// API is the transport the schema client needs, satisfied by
// *client.Client.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
}

// Client fetches annotation schema definitions.
type Client struct {
	api API
}

// New creates a schema client.
func New(api API) *Client {
	return &Client{api: api}
}

// Definition is a JSON-schema style schema definition. The service emits
// marshmallow-generated documents, so the structure stays dynamic.
type Definition map[string]any

// ListSchemas returns the names of all registered annotation schemas.
func (c *Client) ListSchemas(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.api.GetJSON(ctx, "/schema/api/v2/type", nil, &names); err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return names, nil
}

// GetSchema returns the definition of one annotation schema.
func (c *Client) GetSchema(ctx context.Context, name string) (Definition, error) {
	var def Definition
	path := fmt.Sprintf("/schema/api/v2/type/%s", name)
	if err := c.api.GetJSON(ctx, path, nil, &def); err != nil {
		return nil, fmt.Errorf("get schema %s: %w", name, err)
	}
	return def, nil
}
