package openai

import (
	"context"
	"net/http"
)

// EmbeddingsArguments is the request body of POST /embeddings.
type EmbeddingsArguments struct {
	Model string `json:"model"`
	Input string `json:"input"`
	User  string `json:"user,omitempty"`
}

// NewEmbeddingsArguments returns arguments with only the required fields set.
func NewEmbeddingsArguments(model, input string) EmbeddingsArguments {
	return EmbeddingsArguments{Model: model, Input: input}
}

// EmbeddingsResponse is the response of an embeddings request.
type EmbeddingsResponse struct {
	Data  []EmbeddingsData `json:"data"`
	Model string           `json:"model"`
	Usage EmbeddingsUsage  `json:"usage"`
}

// EmbeddingsData is one embedding vector.
type EmbeddingsData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// EmbeddingsUsage reports token consumption of an embeddings request.
type EmbeddingsUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// CreateEmbeddings returns a vector representation of the input.
// See https://platform.openai.com/docs/api-reference/embeddings/create.
func (c *Client) CreateEmbeddings(ctx context.Context, args EmbeddingsArguments) (*EmbeddingsResponse, error) {
	if err := c.validate(&RequestParams{Endpoint: EndpointEmbeddings, Model: args.Model}); err != nil {
		return nil, err
	}

	var resp EmbeddingsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/embeddings", &args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
