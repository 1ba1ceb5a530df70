package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	if _, err := NewClient(""); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("NewClient(\"\") error = %v, want ErrInvalidAPIKey", err)
	}

	client, err := NewClient("sk-test")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
}

func TestNewClientWithConfig_TrimsSlashAndDefaultsBaseURL(t *testing.T) {
	cfg := DefaultConfig("sk-test")
	cfg.BaseURL = "http://localhost:8080/v1/"
	client, err := NewClientWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewClientWithConfig failed: %v", err)
	}
	if client.baseURL != "http://localhost:8080/v1" {
		t.Errorf("baseURL = %q", client.baseURL)
	}

	cfg.BaseURL = ""
	client, err = NewClientWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewClientWithConfig failed: %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want default", client.baseURL)
	}
}

func TestClient_Headers(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("OpenAI-Organization"); got != "org-42" {
			t.Errorf("OpenAI-Organization = %q", got)
		}
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q, want /v1/models", r.URL.Path)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"object": "list", "data": []any{}})
	}, func(c *Config) { c.Organization = "org-42" })

	if _, err := client.ListModels(context.Background()); err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
}

func TestClient_ListModels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "gpt-4o", "object": "model", "owned_by": "openai", "created": 1715367049},
				{"id": "whisper-1", "object": "model", "owned_by": "openai-internal", "created": 1677532384},
			},
		})
	})

	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("got %d models, want 2", len(models))
	}
	if models[0].ID != "gpt-4o" || models[0].OwnedBy != "openai" || models[0].Created != 1715367049 {
		t.Errorf("models[0] = %+v", models[0])
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantRetry bool
		wantMsg   string
	}{
		{
			name:    "unauthorized",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantErr: ErrInvalidAPIKey,
			wantMsg: "Incorrect API key provided",
		},
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			body:      `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`,
			wantErr:   ErrRateLimited,
			wantRetry: true,
			wantMsg:   "Rate limit reached",
		},
		{
			name:    "unknown model",
			status:  http.StatusNotFound,
			body:    `{"error":{"message":"The model does not exist","type":"invalid_request_error","param":"model","code":"model_not_found"}}`,
			wantErr: ErrInvalidModel,
			wantMsg: "The model does not exist",
		},
		{
			name:      "plain text 502",
			status:    http.StatusBadGateway,
			body:      "bad gateway\n",
			wantErr:   ErrProviderUnavailable,
			wantRetry: true,
			wantMsg:   "bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.CreateChat(context.Background(), NewChatArguments("gpt-4o-mini",
				ChatMessage{Role: RoleUser, Content: "hi"}))

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if IsRetryable(err) != tt.wantRetry {
				t.Errorf("IsRetryable() = %v, want %v", IsRetryable(err), tt.wantRetry)
			}
		})
	}
}

func TestClient_CreateChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if _, ok := body["stream"]; ok {
			t.Errorf("stream should be omitted for CreateChat, got %v", body["stream"])
		}
		if body["temperature"] != 0.5 {
			t.Errorf("temperature = %v, want 0.5", body["temperature"])
		}
		if _, ok := body["top_p"]; ok {
			t.Error("unset top_p should be omitted")
		}

		writeJSON(t, w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Hello there"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5},
		})
	})

	args := NewChatArguments("gpt-4o-mini", ChatMessage{Role: RoleUser, Content: "hi"})
	args.Temperature = float64Ptr(0.5)
	args.Stream = true // ignored by CreateChat

	resp, err := client.CreateChat(context.Background(), args)
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if resp.String() != "Hello there" {
		t.Errorf("String() = %q", resp.String())
	}
	if resp.Usage.TotalTokens != 5 {
		t.Errorf("TotalTokens = %d, want 5", resp.Usage.TotalTokens)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("FinishReason = %q", resp.Choices[0].FinishReason)
	}
}

func TestClient_StrictValidationBlocksRequest(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{})
	}, func(c *Config) { c.StrictValidation = true })

	args := NewChatArguments("gpt-4o-mini", ChatMessage{Role: RoleUser, Content: "hi"})
	args.Temperature = float64Ptr(3)

	_, err := client.CreateChat(context.Background(), args)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if validationErr.Field != "temperature" {
		t.Errorf("Field = %q, want temperature", validationErr.Field)
	}
	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("validation error should wrap ErrInvalidRequest")
	}

	_, err = client.CreateCompletion(context.Background(), NewCompletionArguments("gpt-4o-mini", "hi"))
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("wrong-endpoint error = %v, want ErrInvalidModel", err)
	}

	if hits.Load() != 0 {
		t.Errorf("server was called %d times, want 0", hits.Load())
	}
}

func TestClient_LenientValidationStillSends(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"choices": []any{}})
	})

	args := NewChatArguments("gpt-4o-mini", ChatMessage{Role: RoleUser, Content: "hi"})
	args.Temperature = float64Ptr(3)

	resp, err := client.CreateChat(context.Background(), args)
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if resp.String() != "" {
		t.Errorf("String() on empty choices = %q", resp.String())
	}
	if hits.Load() != 1 {
		t.Errorf("server was called %d times, want 1", hits.Load())
	}
}

func TestClient_CreateCompletion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var args CompletionArguments
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if args.Prompt != "Say this is a test" || args.Suffix != "!" || !args.Echo {
			t.Errorf("request = %+v", args)
		}
		if args.LogProbs == nil || *args.LogProbs != 1 {
			t.Errorf("logprobs = %v, want 1", args.LogProbs)
		}

		io.WriteString(w, `{"id":"cmpl-1","object":"text_completion","created":1,"model":"gpt-3.5-turbo-instruct",
			"choices":[{"text":"This is a test","index":0,"finish_reason":"stop",
			"logprobs":{"tokens":["This"," is"],"token_logprobs":[-0.1,-0.2],"top_logprobs":[{"This":-0.1},{" is":-0.2}],"text_offset":[0,4]}}]}`)
	})

	args := NewCompletionArguments("gpt-3.5-turbo-instruct", "Say this is a test")
	args.Suffix = "!"
	args.Echo = true
	args.LogProbs = intPtr(1)

	resp, err := client.CreateCompletion(context.Background(), args)
	if err != nil {
		t.Fatalf("CreateCompletion failed: %v", err)
	}
	if resp.String() != "This is a test" {
		t.Errorf("String() = %q", resp.String())
	}
	lp := resp.Choices[0].LogProbs
	if lp == nil || len(lp.Tokens) != 2 || lp.TopLogProbs[1][" is"] != -0.2 || lp.TextOffset[1] != 4 {
		t.Errorf("LogProbs = %+v", lp)
	}
}

func TestClient_CreateEdit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/edits" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"object":"edit","created":1589478378,"choices":[{"text":"What day of the week is it?","index":0}],
			"usage":{"prompt_tokens":25,"completion_tokens":32,"total_tokens":57}}`)
	})

	resp, err := client.CreateEdit(context.Background(),
		NewEditArguments("text-davinci-edit-001", "What day of the wek is it?", "Fix the spelling mistakes"))
	if err != nil {
		t.Fatalf("CreateEdit failed: %v", err)
	}
	if resp.String() != "What day of the week is it?" {
		t.Errorf("String() = %q", resp.String())
	}
	if resp.Usage.TotalTokens != 57 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

func TestClient_CreateEmbeddings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var args EmbeddingsArguments
		json.NewDecoder(r.Body).Decode(&args)
		if args.Input != "The food was delicious" {
			t.Errorf("input = %q", args.Input)
		}
		io.WriteString(w, `{"object":"list","data":[{"object":"embedding","embedding":[0.0023,-0.0093,0.015],"index":0}],
			"model":"text-embedding-ada-002","usage":{"prompt_tokens":5,"total_tokens":5}}`)
	})

	resp, err := client.CreateEmbeddings(context.Background(),
		NewEmbeddingsArguments("text-embedding-ada-002", "The food was delicious"))
	if err != nil {
		t.Fatalf("CreateEmbeddings failed: %v", err)
	}
	if len(resp.Data) != 1 || len(resp.Data[0].Embedding) != 3 {
		t.Fatalf("Data = %+v", resp.Data)
	}
	if resp.Data[0].Embedding[1] != -0.0093 {
		t.Errorf("Embedding[1] = %v", resp.Data[0].Embedding[1])
	}
	if resp.Usage.PromptTokens != 5 {
		t.Errorf("PromptTokens = %d", resp.Usage.PromptTokens)
	}
}

func TestClient_CreateImage(t *testing.T) {
	tests := []struct {
		name    string
		format  ImageResponseFormat
		body    string
		want    []string
		wantErr error
	}{
		{
			name: "urls",
			body: `{"created":1,"data":[{"url":"https://example.com/a.png"},{"url":"https://example.com/b.png"}]}`,
			want: []string{"https://example.com/a.png", "https://example.com/b.png"},
		},
		{
			name:   "base64",
			format: ImageFormatBase64JSON,
			body:   `{"created":1,"data":[{"b64_json":"iVBORw0KGgo="}]}`,
			want:   []string{"iVBORw0KGgo="},
		},
		{
			name:    "no images",
			body:    `{"created":1,"data":[]}`,
			wantErr: ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/images/generations" {
					t.Errorf("path = %q", r.URL.Path)
				}
				var args ImageArguments
				json.NewDecoder(r.Body).Decode(&args)
				if args.ResponseFormat != tt.format || args.Size != ImageSize512 {
					t.Errorf("request = %+v", args)
				}
				io.WriteString(w, tt.body)
			})

			args := NewImageArguments("a white siamese cat")
			args.ResponseFormat = tt.format
			args.Size = ImageSize512

			images, err := client.CreateImage(context.Background(), args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateImage failed: %v", err)
			}
			if strings.Join(images, ",") != strings.Join(tt.want, ",") {
				t.Errorf("images = %v, want %v", images, tt.want)
			}
		})
	}
}

func TestClient_MalformedJSONResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data": [`)
	})

	if _, err := client.ListModels(context.Background()); err == nil {
		t.Error("expected an error for a truncated response body")
	}
}

// pause waits for d or until the client goes away.
func pause(r *http.Request, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

func TestClient_Timeout(t *testing.T) {
	const timeout = 50 * time.Millisecond
	words := []string{"slow", " and", " steady", " wins"}

	streamHandler := func(headerDelay time.Duration) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !pause(r, headerDelay) {
				return
			}
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			w.(http.Flusher).Flush()
			for i, word := range words {
				if !pause(r, 30*time.Millisecond) {
					return
				}
				io.WriteString(w, sseFrame(string(rune('a'+i)), word))
				w.(http.Flusher).Flush()
			}
			io.WriteString(w, "data: [DONE]\n\n")
		}
	}

	streamChat := func(client *Client) (string, error) {
		s, err := client.CreateChatStream(context.Background(),
			NewChatArguments("gpt-4o-mini", ChatMessage{Role: RoleUser, Content: "go"}))
		if err != nil {
			return "", err
		}
		defer s.Close()
		completion, err := s.Collect(context.Background())
		if err != nil {
			return "", err
		}
		return completion.String(), nil
	}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		call    func(*Client) (string, error)
		want    string
		wantErr bool
	}{
		{
			name:    "stream outlives the timeout",
			handler: streamHandler(0),
			call:    streamChat,
			want:    "slow and steady wins",
		},
		{
			name:    "stream headers arrive too late",
			handler: streamHandler(10 * timeout),
			call:    streamChat,
			wantErr: true,
		},
		{
			name: "blocking body arrives too late",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.(http.Flusher).Flush()
				if pause(r, 10*timeout) {
					io.WriteString(w, `{"object":"list","data":[]}`)
				}
			},
			call: func(client *Client) (string, error) {
				_, err := client.ListModels(context.Background())
				return "", err
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, func(c *Config) { c.Timeout = timeout })

			got, err := tt.call(client)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got = %q, want %q", got, tt.want)
			}
		})
	}
}
