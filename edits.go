package openai

import (
	"context"
	"net/http"
)

// EditArguments is the request body of POST /edits.
//
// Deprecated: the edits endpoint has been retired upstream; use CreateChat with
// the instruction as a system message.
type EditArguments struct {
	Model       string   `json:"model"`
	Input       string   `json:"input,omitempty"`
	Instruction string   `json:"instruction"`
	N           *int     `json:"n,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// NewEditArguments returns arguments with only the required fields set.
//
// Deprecated: see EditArguments.
func NewEditArguments(model, input, instruction string) EditArguments {
	return EditArguments{Model: model, Input: input, Instruction: instruction}
}

func (a *EditArguments) requestParams() *RequestParams {
	return &RequestParams{
		Endpoint:    EndpointEdits,
		Model:       a.Model,
		Temperature: a.Temperature,
		TopP:        a.TopP,
		N:           a.N,
	}
}

// EditResponse is the response of an edit request.
//
// Deprecated: see EditArguments.
type EditResponse struct {
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Choices []EditChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// EditChoice is one edited alternative.
type EditChoice struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

// String returns the text of the first choice.
func (r *EditResponse) String() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Text
}

// CreateEdit asks the model to rewrite Input following Instruction.
//
// Deprecated: see EditArguments.
func (c *Client) CreateEdit(ctx context.Context, args EditArguments) (*EditResponse, error) {
	if err := c.validate(args.requestParams()); err != nil {
		return nil, err
	}

	var resp EditResponse
	if err := c.doJSON(ctx, http.MethodPost, "/edits", &args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
