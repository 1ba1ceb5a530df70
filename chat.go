package openai

import (
	"context"
	"net/http"
)

// Role is the author of a chat message.
type Role = string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatArguments is the request body of POST /chat/completions.
// See https://platform.openai.com/docs/api-reference/chat/create.
type ChatArguments struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	N                *int          `json:"n,omitempty"`
	Stream           bool          `json:"stream,omitempty"`
	Stop             []string      `json:"stop,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	User             string        `json:"user,omitempty"`
}

// NewChatArguments returns arguments with only the required fields set.
func NewChatArguments(model string, messages ...ChatMessage) ChatArguments {
	return ChatArguments{
		Model:    model,
		Messages: messages,
	}
}

func (a *ChatArguments) requestParams() *RequestParams {
	return &RequestParams{
		Endpoint:         EndpointChat,
		Model:            a.Model,
		Temperature:      a.Temperature,
		TopP:             a.TopP,
		N:                a.N,
		MaxTokens:        a.MaxTokens,
		PresencePenalty:  a.PresencePenalty,
		FrequencyPenalty: a.FrequencyPenalty,
	}
}

// ChatCompletion is the response of a non-streaming chat request, or the result
// of collecting a stream with ChatStream.Collect.
type ChatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ChatChoice is one generated alternative.
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatUsage reports token consumption.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// String returns the content of the first choice.
func (c *ChatCompletion) String() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Message.Content
}

// CreateChat sends a chat request and waits for the whole response.
func (c *Client) CreateChat(ctx context.Context, args ChatArguments) (*ChatCompletion, error) {
	args.Stream = false
	if err := c.validate(args.requestParams()); err != nil {
		return nil, err
	}

	var resp ChatCompletion
	if err := c.doJSON(ctx, http.MethodPost, "/chat/completions", &args, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
