// Package lorem is an offline stand-in for the streaming API. It generates
// lorem ipsum chat and completion responses, serves them over an
// http.RoundTripper, and re-chunks event streams at arbitrary boundaries.
//
// Models are selected by name: "lorem-slow", "lorem-medium" and "lorem-fast"
// control the delay between streamed words, and "lorem-cutoff" always stops
// with finish reason "length".
package lorem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"

	"github.com/LevitatingBusinessMan/openai-go"
	"github.com/LevitatingBusinessMan/openai-go/stream"
)

// Models served by the mock, in the order ListModels reports them.
var Models = []string{"lorem-fast", "lorem-medium", "lorem-slow", "lorem-cutoff"}

// Finish reasons.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)

// IsModel reports whether model is served by the mock.
func IsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// StreamDelay returns the delay between streamed words for a model.
// - lorem-slow: 2 words/second (500ms per word)
// - lorem-fast: 30 words/second (33ms per word)
// - lorem-medium and default: 10 words/second (100ms per word)
func StreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// isCutoffModel returns true if the model should simulate max_tokens cutoff.
func isCutoffModel(model string) bool {
	return strings.Contains(model, "cutoff") || strings.Contains(model, "small")
}

// Generator produces lorem ipsum responses. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	text   *loremgen.Lorem
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a generator. A nil logger discards progress output.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{
		text:   loremgen.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Words returns the words of one response for model, and the finish reason.
// maxTokens <= 0 means no limit; one word stands in for one token.
func (g *Generator) Words(model string, maxTokens int) ([]string, string) {
	g.mu.Lock()
	words := strings.Fields(g.text.Paragraph(2, 4))
	g.mu.Unlock()

	finish := FinishStop
	limit := len(words)
	if isCutoffModel(model) {
		limit = max(len(words)/2, 1)
		finish = FinishLength
	}
	if maxTokens > 0 && maxTokens < limit {
		limit = maxTokens
		finish = FinishLength
	}

	g.logger.Debug("[LOREM] generated response", "model", model, "words", limit, "finish_reason", finish)
	return words[:limit], finish
}

// Prompt returns a single lorem sentence, for use as a request prompt.
func (g *Generator) Prompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text.Sentence(5, 15)
}

// ChatChunks returns the chunks of one streamed chat response: a role delta, one
// content delta per word, and a final chunk carrying the finish reason.
func (g *Generator) ChatChunks(model string, maxTokens int) []openai.ChatChunk {
	words, finish := g.Words(model, maxTokens)
	id := "chatcmpl-" + uuid.NewString()
	created := g.now().Unix()

	chunk := func(delta openai.ChatDelta, finishReason *string) openai.ChatChunk {
		return openai.ChatChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   model,
			Choices: []openai.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
		}
	}

	role, empty := openai.RoleAssistant, ""
	chunks := make([]openai.ChatChunk, 0, len(words)+2)
	chunks = append(chunks, chunk(openai.ChatDelta{Role: &role, Content: &empty}, nil))
	for i, word := range words {
		content := word
		if i > 0 {
			content = " " + word
		}
		chunks = append(chunks, chunk(openai.ChatDelta{Content: &content}, nil))
	}
	chunks = append(chunks, chunk(openai.ChatDelta{}, &finish))
	return chunks
}

// ChatCompletion returns a non-streamed chat response.
func (g *Generator) ChatCompletion(model string, maxTokens int, promptTokens int) *openai.ChatCompletion {
	words, finish := g.Words(model, maxTokens)
	return &openai.ChatCompletion{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: g.now().Unix(),
		Model:   model,
		Choices: []openai.ChatChoice{{
			Index:        0,
			Message:      openai.ChatMessage{Role: openai.RoleAssistant, Content: strings.Join(words, " ")},
			FinishReason: finish,
		}},
		Usage: openai.ChatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: len(words),
			TotalTokens:      promptTokens + len(words),
		},
	}
}

// CompletionChunks returns the chunks of one streamed completion.
func (g *Generator) CompletionChunks(model string, maxTokens int) []openai.CompletionChunk {
	words, finish := g.Words(model, maxTokens)
	id := "cmpl-" + uuid.NewString()
	created := g.now().Unix()

	chunks := make([]openai.CompletionChunk, 0, len(words)+1)
	for i, word := range words {
		text := word
		if i > 0 {
			text = " " + word
		}
		chunks = append(chunks, openai.CompletionChunk{
			ID: id, Object: "text_completion", Created: created, Model: model,
			Choices: []openai.CompletionChunkChoice{{Text: text}},
		})
	}
	chunks = append(chunks, openai.CompletionChunk{
		ID: id, Object: "text_completion", Created: created, Model: model,
		Choices: []openai.CompletionChunkChoice{{FinishReason: &finish}},
	})
	return chunks
}

// Completion returns a non-streamed completion response.
func (g *Generator) Completion(model string, maxTokens int) *openai.CompletionResponse {
	words, finish := g.Words(model, maxTokens)
	return &openai.CompletionResponse{
		ID:      "cmpl-" + uuid.NewString(),
		Object:  "text_completion",
		Created: g.now().Unix(),
		Model:   model,
		Choices: []openai.CompletionChoice{{
			Text:         strings.Join(words, " "),
			FinishReason: finish,
		}},
		Usage: openai.ChatUsage{CompletionTokens: len(words), TotalTokens: len(words)},
	}
}

// Frame encodes v as one "data: <json>\n\n" frame.
func Frame(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(payload) + 8)
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

// DoneFrame is the frame that terminates every stream.
func DoneFrame() []byte {
	return []byte("data: " + stream.DoneMarker + "\n\n")
}

// Body encodes events as a complete event-stream body, terminated by DoneFrame.
func Body[T any](events []T) ([]byte, error) {
	var buf bytes.Buffer
	for _, ev := range events {
		frame, err := Frame(ev)
		if err != nil {
			return nil, err
		}
		buf.Write(frame)
	}
	buf.Write(DoneFrame())
	return buf.Bytes(), nil
}
