package openai

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/mailru/easyjson"

	"github.com/LevitatingBusinessMan/openai-go/stream"
)

// ChatChunk is one event of a streamed chat response.
type ChatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"` // "chat.completion.chunk"
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`

	// Usage is only sent in the final chunk, and only when the server was asked to.
	Usage *ChatUsage `json:"usage,omitempty"`

	// apiErr is set when the frame was an in-band error instead of a chunk.
	apiErr *APIError
}

// ChunkChoice is the increment for one choice index.
type ChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// ChatDelta holds the fields that changed. Absent fields are nil.
type ChatDelta struct {
	Role    *string `json:"role,omitempty"`
	Content *string `json:"content,omitempty"`
}

// String returns the content increment of the first choice, or "".
func (c ChatChunk) String() string {
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return ""
	}
	return *c.Choices[0].Delta.Content
}

// DecodeChatChunk decodes one frame payload. An in-band error frame
// ({"error": {...}}) decodes to an *APIError.
func DecodeChatChunk(payload []byte) (ChatChunk, error) {
	if nullPayload(payload) {
		return ChatChunk{}, ErrNullEvent
	}
	var chunk ChatChunk
	if err := easyjson.Unmarshal(payload, &chunk); err != nil {
		return ChatChunk{}, err
	}
	if chunk.apiErr != nil {
		return ChatChunk{}, chunk.apiErr
	}
	return chunk, nil
}

func nullPayload(payload []byte) bool {
	return bytes.Equal(bytes.TrimSpace(payload), []byte("null"))
}

// ChatStream is a streamed chat response. Pull chunks with the embedded
// Decoder's Next, Poll, NextBatch or All, and Close the stream when done.
//
// Errors wrapping *APIError are in-band API errors; like any other frame error,
// the stream stays usable after them.
type ChatStream struct {
	*stream.Decoder[ChatChunk]
	body io.Closer
}

// NewChatStream decodes a chat event stream from src. The client builds streams
// from HTTP responses; this is for sources obtained elsewhere. closer may be nil.
func NewChatStream(src stream.Source, closer io.Closer, opts ...stream.Option) *ChatStream {
	return &ChatStream{
		Decoder: stream.NewDecoder(src, DecodeChatChunk, opts...),
		body:    closer,
	}
}

// Close releases the underlying connection. Safe to call more than once.
func (s *ChatStream) Close() error {
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

// Collect reads the rest of the stream and assembles it into a ChatCompletion:
// content is concatenated per choice index and the last finish reason is kept.
// The first error of any kind aborts collection.
func (s *ChatStream) Collect(ctx context.Context) (*ChatCompletion, error) {
	type partial struct {
		role    string
		content strings.Builder
		finish  string
	}

	out := &ChatCompletion{Object: "chat.completion"}
	choices := make(map[int]*partial)

	for {
		chunk, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, stream.ErrCommentFrame) {
			continue
		}
		if err != nil {
			return nil, err
		}

		out.ID = cmp.Or(out.ID, chunk.ID)
		out.Model = cmp.Or(out.Model, chunk.Model)
		out.Created = cmp.Or(out.Created, chunk.Created)
		if chunk.Usage != nil {
			out.Usage = *chunk.Usage
		}

		for _, choice := range chunk.Choices {
			p, ok := choices[choice.Index]
			if !ok {
				p = &partial{}
				choices[choice.Index] = p
			}
			if choice.Delta.Role != nil {
				p.role = *choice.Delta.Role
			}
			if choice.Delta.Content != nil {
				p.content.WriteString(*choice.Delta.Content)
			}
			if choice.FinishReason != nil {
				p.finish = *choice.FinishReason
			}
		}
	}

	for _, index := range slices.Sorted(maps.Keys(choices)) {
		p := choices[index]
		out.Choices = append(out.Choices, ChatChoice{
			Index:        index,
			Message:      ChatMessage{Role: cmp.Or(p.role, RoleAssistant), Content: p.content.String()},
			FinishReason: p.finish,
		})
	}
	return out, nil
}

// CreateChatStream sends a chat request with stream=true and returns the open stream.
// The request context bounds the whole stream; cancel it or Close the stream to
// abandon it early.
func (c *Client) CreateChatStream(ctx context.Context, args ChatArguments) (*ChatStream, error) {
	args.Stream = true
	if err := c.validate(args.requestParams()); err != nil {
		return nil, err
	}

	resp, err := c.openStream(ctx, "/chat/completions", &args)
	if err != nil {
		return nil, err
	}

	src := stream.NewReaderSource(resp.Body, c.cfg.ChunkSize)
	return NewChatStream(src, resp.Body, stream.WithLogger(c.logger)), nil
}
