package openai

import (
	"context"
	"net/http"
)

// Model describes a model offered by the API.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
	Created int64  `json:"created"` // Unix seconds
}

// ListModels returns the models available to the API key.
// See https://platform.openai.com/docs/api-reference/models/list.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var resp struct {
		Data []Model `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/models", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
