package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/LevitatingBusinessMan/openai-go/stream"
)

// CompletionArguments is the request body of POST /completions.
// See https://platform.openai.com/docs/api-reference/completions/create.
type CompletionArguments struct {
	Model            string   `json:"model"`
	Prompt           string   `json:"prompt"`
	Suffix           string   `json:"suffix,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	N                *int     `json:"n,omitempty"`
	Stream           bool     `json:"stream,omitempty"`
	LogProbs         *int     `json:"logprobs,omitempty"`
	Echo             bool     `json:"echo,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	BestOf           *int     `json:"best_of,omitempty"`
	User             string   `json:"user,omitempty"`
}

// NewCompletionArguments returns arguments with only the required fields set.
func NewCompletionArguments(model, prompt string) CompletionArguments {
	return CompletionArguments{Model: model, Prompt: prompt}
}

func (a *CompletionArguments) requestParams() *RequestParams {
	return &RequestParams{
		Endpoint:         EndpointCompletions,
		Model:            a.Model,
		Temperature:      a.Temperature,
		TopP:             a.TopP,
		N:                a.N,
		BestOf:           a.BestOf,
		MaxTokens:        a.MaxTokens,
		PresencePenalty:  a.PresencePenalty,
		FrequencyPenalty: a.FrequencyPenalty,
	}
}

// CompletionResponse is the response of a non-streaming completion request.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   ChatUsage          `json:"usage"`
}

// CompletionChoice is one generated alternative.
type CompletionChoice struct {
	Text         string    `json:"text"`
	Index        int       `json:"index"`
	LogProbs     *LogProbs `json:"logprobs"`
	FinishReason string    `json:"finish_reason"`
}

// LogProbs holds per-token log probabilities when requested with CompletionArguments.LogProbs.
type LogProbs struct {
	Tokens        []string             `json:"tokens"`
	TokenLogProbs []float64            `json:"token_logprobs"`
	TopLogProbs   []map[string]float64 `json:"top_logprobs"`
	TextOffset    []int                `json:"text_offset"`
}

// String returns the text of the first choice.
func (r *CompletionResponse) String() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Text
}

// CreateCompletion sends a completion request and waits for the whole response.
func (c *Client) CreateCompletion(ctx context.Context, args CompletionArguments) (*CompletionResponse, error) {
	args.Stream = false
	if err := c.validate(args.requestParams()); err != nil {
		return nil, err
	}

	var resp CompletionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/completions", &args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompletionChunk is one event of a streamed completion.
type CompletionChunk struct {
	ID      string                  `json:"id"`
	Object  string                  `json:"object"` // "text_completion"
	Created int64                   `json:"created"`
	Model   string                  `json:"model"`
	Choices []CompletionChunkChoice `json:"choices"`
}

// CompletionChunkChoice is the text increment for one choice index.
type CompletionChunkChoice struct {
	Text         string    `json:"text"`
	Index        int       `json:"index"`
	LogProbs     *LogProbs `json:"logprobs"`
	FinishReason *string   `json:"finish_reason"`
}

// String returns the text increment of the first choice, or "".
func (c CompletionChunk) String() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Text
}

// DecodeCompletionChunk decodes one frame payload. An in-band error frame
// decodes to an *APIError.
func DecodeCompletionChunk(payload []byte) (CompletionChunk, error) {
	if nullPayload(payload) {
		return CompletionChunk{}, ErrNullEvent
	}
	var frame struct {
		CompletionChunk
		Error *apiErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil {
		return CompletionChunk{}, err
	}
	if frame.Error != nil {
		return CompletionChunk{}, newAPIError(0, apiErrorBody{Error: frame.Error}, nil)
	}
	return frame.CompletionChunk, nil
}

// CompletionStream is a streamed completion response.
type CompletionStream struct {
	*stream.Decoder[CompletionChunk]
	body io.Closer
}

// Close releases the underlying connection. Safe to call more than once.
func (s *CompletionStream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

// CreateCompletionStream sends a completion request with stream=true and returns the open stream.
func (c *Client) CreateCompletionStream(ctx context.Context, args CompletionArguments) (*CompletionStream, error) {
	args.Stream = true
	if err := c.validate(args.requestParams()); err != nil {
		return nil, err
	}

	resp, err := c.openStream(ctx, "/completions", &args)
	if err != nil {
		return nil, err
	}

	src := stream.NewReaderSource(resp.Body, c.cfg.ChunkSize)
	return &CompletionStream{
		Decoder: stream.NewDecoder(src, DecodeCompletionChunk, stream.WithLogger(c.logger)),
		body:    resp.Body,
	}, nil
}
