package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/LevitatingBusinessMan/openai-go/stream"
)

func TestDecodeChatChunk(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantID      string
		wantContent *string
		wantRole    *string
		wantFinish  *string
		wantChoices int
	}{
		{
			name:        "content delta",
			payload:     `{"id":"x","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"delta":{"content":"hi"},"index":0,"finish_reason":null}]}`,
			wantID:      "x",
			wantContent: stringPtr("hi"),
			wantChoices: 1,
		},
		{
			name:        "role delta with empty content",
			payload:     `{"id":"x","choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}`,
			wantID:      "x",
			wantContent: stringPtr(""),
			wantRole:    stringPtr("assistant"),
			wantChoices: 1,
		},
		{
			name:        "finish chunk with empty delta",
			payload:     `{"id":"x","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			wantID:      "x",
			wantFinish:  stringPtr("stop"),
			wantChoices: 1,
		},
		{
			name:        "escaped unicode content",
			payload:     `{"id":"x","choices":[{"index":0,"delta":{"content":"café \"quoted\"\n"}}]}`,
			wantID:      "x",
			wantContent: stringPtr("café \"quoted\"\n"),
			wantChoices: 1,
		},
		{
			name:        "unknown fields are skipped",
			payload:     `{"id":"x","system_fingerprint":"fp_1","choices":[{"index":0,"logprobs":null,"delta":{"content":"a","tool_calls":[{"index":0}]}}],"extra":{"nested":[1,2,{"k":"v"}]}}`,
			wantID:      "x",
			wantContent: stringPtr("a"),
			wantChoices: 1,
		},
		{
			name:        "usage-only chunk",
			payload:     `{"id":"x","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`,
			wantID:      "x",
			wantChoices: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk, err := DecodeChatChunk([]byte(tt.payload))
			if err != nil {
				t.Fatalf("DecodeChatChunk failed: %v", err)
			}
			if chunk.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", chunk.ID, tt.wantID)
			}
			if len(chunk.Choices) != tt.wantChoices {
				t.Fatalf("got %d choices, want %d", len(chunk.Choices), tt.wantChoices)
			}
			if tt.wantChoices == 0 {
				return
			}

			choice := chunk.Choices[0]
			assertStringPtr(t, "content", choice.Delta.Content, tt.wantContent)
			assertStringPtr(t, "role", choice.Delta.Role, tt.wantRole)
			assertStringPtr(t, "finish_reason", choice.FinishReason, tt.wantFinish)
		})
	}
}

func TestDecodeChatChunk_Usage(t *testing.T) {
	chunk, err := DecodeChatChunk([]byte(`{"id":"x","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`))
	if err != nil {
		t.Fatalf("DecodeChatChunk failed: %v", err)
	}
	if chunk.Usage == nil || chunk.Usage.TotalTokens != 3 {
		t.Errorf("Usage = %+v", chunk.Usage)
	}
}

func TestDecodeChatChunk_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"truncated object", `{"id":"x","choices":[`},
		{"not an object", `[1,2,3]`},
		{"wrong field type", `{"id":"x","created":"yesterday"}`},
		{"trailing garbage", `{"id":"x"} {"id":"y"}`},
		{"bare text", `hello`},
		{"null", `null`},
		{"padded null", " null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeChatChunk([]byte(tt.payload)); err == nil {
				t.Errorf("DecodeChatChunk(%s) succeeded, want error", tt.payload)
			}
		})
	}
}

func TestDecodeChunk_NullPayload(t *testing.T) {
	if _, err := DecodeChatChunk([]byte("null")); !errors.Is(err, ErrNullEvent) {
		t.Errorf("DecodeChatChunk(null) error = %v, want ErrNullEvent", err)
	}
	if _, err := DecodeCompletionChunk([]byte("null")); !errors.Is(err, ErrNullEvent) {
		t.Errorf("DecodeCompletionChunk(null) error = %v, want ErrNullEvent", err)
	}

	body := "data: null\n\n" + sseFrame("a", "x") + "data: [DONE]\n\n"
	s := NewChatStream(stream.Chunks([]byte(body)), nil)
	_, err := s.Next(context.Background())
	if !errors.Is(err, ErrNullEvent) || !errors.Is(err, stream.ErrMalformedPayload) {
		t.Fatalf("Next error = %v, want ErrNullEvent as a malformed payload", err)
	}
	chunk, err := s.Next(context.Background())
	if err != nil || chunk.String() != "x" {
		t.Errorf("next chunk = (%q, %v), want x", chunk.String(), err)
	}
}

func TestDecodeChatChunk_InBandError(t *testing.T) {
	payload := `{"error":{"message":"The server had an error while processing your request.","type":"server_error","param":null,"code":null}}`

	_, err := DecodeChatChunk([]byte(payload))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Type != "server_error" {
		t.Errorf("Type = %q", apiErr.Type)
	}
	if !strings.Contains(apiErr.Message, "server had an error") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestChatChunk_String(t *testing.T) {
	if got := (ChatChunk{}).String(); got != "" {
		t.Errorf("empty chunk String() = %q", got)
	}

	chunk := ChatChunk{Choices: []ChunkChoice{{Delta: ChatDelta{Content: stringPtr("hey")}}}}
	if got := fmt.Sprint(chunk); got != "hey" {
		t.Errorf("String() = %q, want hey", got)
	}
}

func TestChatChunk_UnmarshalJSON(t *testing.T) {
	var chunks []ChatChunk
	data := `[{"id":"a","choices":[{"index":0,"delta":{"content":"x"}}]},{"id":"b","choices":[]}]`
	if err := json.Unmarshal([]byte(data), &chunks); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if len(chunks) != 2 || chunks[0].String() != "x" || chunks[1].ID != "b" {
		t.Errorf("chunks = %+v", chunks)
	}
}

// sseFrame renders a chat chunk frame the way the API does.
func sseFrame(id, content string) string {
	quoted, _ := json.Marshal(content)
	return fmt.Sprintf(`data: {"id":%q,"object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%s},"finish_reason":null}]}`+"\n\n", id, quoted)
}

func TestChatStream_InBandErrorIsLocal(t *testing.T) {
	body := sseFrame("a", "one") +
		`data: {"error":{"message":"overloaded","type":"server_error"}}` + "\n\n" +
		sseFrame("a", " two") +
		"data: [DONE]\n\n"

	s := NewChatStream(stream.Chunks([]byte(body)), nil)
	ctx := context.Background()

	if chunk, err := s.Next(ctx); err != nil || chunk.String() != "one" {
		t.Fatalf("first chunk = (%q, %v)", chunk.String(), err)
	}

	_, err := s.Next(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "overloaded" {
		t.Fatalf("error = %v, want in-band *APIError", err)
	}
	if stream.IsFatal(err) {
		t.Error("in-band error should not be fatal to the stream")
	}

	if chunk, err := s.Next(ctx); err != nil || chunk.String() != " two" {
		t.Fatalf("chunk after error = (%q, %v)", chunk.String(), err)
	}
	if _, err := s.Next(ctx); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestChatStream_Collect(t *testing.T) {
	body := `data: {"id":"c1","created":7,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":""}},{"index":1,"delta":{"role":"assistant","content":""}}]}` + "\n\n" +
		`data: {"id":"c1","choices":[{"index":1,"delta":{"content":"Bonjour"}}]}` + "\n\n" +
		`data: {"id":"c1","choices":[{"index":0,"delta":{"content":"Hello"}}]}` + "\n\n" +
		`data: {"id":"c1","choices":[{"index":0,"delta":{"content":" world"}}]}` + "\n\n" +
		`data: {"id":"c1","choices":[{"index":0,"delta":{},"finish_reason":"stop"},{"index":1,"delta":{},"finish_reason":"length"}]}` + "\n\n" +
		`data: {"id":"c1","choices":[],"usage":{"prompt_tokens":4,"completion_tokens":3,"total_tokens":7}}` + "\n\n" +
		"data: [DONE]\n\n"

	s := NewChatStream(stream.Chunks([]byte(body)), nil)
	completion, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if completion.ID != "c1" || completion.Model != "gpt-4o-mini" || completion.Created != 7 {
		t.Errorf("header = (%q, %q, %d)", completion.ID, completion.Model, completion.Created)
	}
	if len(completion.Choices) != 2 {
		t.Fatalf("got %d choices, want 2", len(completion.Choices))
	}

	want := []ChatChoice{
		{Index: 0, Message: ChatMessage{Role: RoleAssistant, Content: "Hello world"}, FinishReason: "stop"},
		{Index: 1, Message: ChatMessage{Role: RoleAssistant, Content: "Bonjour"}, FinishReason: "length"},
	}
	for i, w := range want {
		if completion.Choices[i] != w {
			t.Errorf("choice[%d] = %+v, want %+v", i, completion.Choices[i], w)
		}
	}
	if completion.Usage.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", completion.Usage.TotalTokens)
	}
	if completion.String() != "Hello world" {
		t.Errorf("String() = %q", completion.String())
	}
}

func TestChatStream_CollectSkipsKeepAlive(t *testing.T) {
	body := ": keep-alive\n\n" + sseFrame("a", "Hello") + ": keep-alive\n\n" + sseFrame("a", " there") + "data: [DONE]\n\n"

	s := NewChatStream(stream.Chunks([]byte(body)), nil)
	completion, err := s.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got := completion.String(); got != "Hello there" {
		t.Errorf("String() = %q, want %q", got, "Hello there")
	}
}

func TestChatStream_CollectStopsOnError(t *testing.T) {
	body := sseFrame("a", "x") + "data: {not json\n\n" + sseFrame("a", "y") + "data: [DONE]\n\n"

	s := NewChatStream(stream.Chunks([]byte(body)), nil)
	if _, err := s.Collect(context.Background()); !errors.Is(err, stream.ErrMalformedPayload) {
		t.Errorf("Collect error = %v, want ErrMalformedPayload", err)
	}
}

func TestClient_CreateChatStream(t *testing.T) {
	words := []string{"The", " quick", " brown", " fox"}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q", got)
		}
		var args ChatArguments
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if !args.Stream {
			t.Error("stream = false, want true")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i, word := range words {
			io.WriteString(w, sseFrame(fmt.Sprintf("c%d", i), word))
			flusher.Flush()
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}, func(c *Config) { c.ChunkSize = 16 })

	s, err := client.CreateChatStream(context.Background(),
		NewChatArguments("gpt-4o-mini", ChatMessage{Role: RoleUser, Content: "go"}))
	if err != nil {
		t.Fatalf("CreateChatStream failed: %v", err)
	}
	defer s.Close()

	var sb strings.Builder
	for chunk, err := range s.All(context.Background()) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		sb.WriteString(chunk.String())
	}

	if sb.String() != "The quick brown fox" {
		t.Errorf("content = %q", sb.String())
	}
	if s.State() != stream.StateExhausted {
		t.Errorf("state = %s, want exhausted", s.State())
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestClient_CreateChatStream_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"slow down","type":"requests"}}`)
	})

	_, err := client.CreateChatStream(context.Background(),
		NewChatArguments("gpt-4o-mini", ChatMessage{Role: RoleUser, Content: "go"}))
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
}

func TestClient_CreateCompletionStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"id":"cmpl-1","object":"text_completion","created":1,"model":"gpt-3.5-turbo-instruct","choices":[{"text":"Hello","index":0,"logprobs":null,"finish_reason":null}]}`+"\n\n")
		io.WriteString(w, `data: {"id":"cmpl-1","object":"text_completion","created":1,"model":"gpt-3.5-turbo-instruct","choices":[{"text":" again","index":0,"logprobs":null,"finish_reason":"stop"}]}`+"\n\n")
		io.WriteString(w, `data: {"error":{"message":"late failure","type":"server_error","code":500}}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	s, err := client.CreateCompletionStream(context.Background(),
		NewCompletionArguments("gpt-3.5-turbo-instruct", "Say hello"))
	if err != nil {
		t.Fatalf("CreateCompletionStream failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	var text strings.Builder
	var finish string
	var apiErr *APIError
	for {
		chunk, err := s.Next(ctx)
		if err == io.EOF {
			break
		}
		if errors.As(err, &apiErr) {
			continue
		}
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		text.WriteString(chunk.String())
		if fr := chunk.Choices[0].FinishReason; fr != nil {
			finish = *fr
		}
	}

	if text.String() != "Hello again" {
		t.Errorf("text = %q", text.String())
	}
	if finish != "stop" {
		t.Errorf("finish = %q, want stop", finish)
	}
	if apiErr == nil || apiErr.Code != "500" {
		t.Errorf("in-band error = %+v, want code 500", apiErr)
	}
}

func assertStringPtr(t *testing.T, field string, got, want *string) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s = %v, want %v", field, got, want)
	case *got != *want:
		t.Errorf("%s = %q, want %q", field, *got, *want)
	}
}
