package lorem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LevitatingBusinessMan/openai-go"
)

// Transport is an http.RoundTripper that answers API requests locally.
// It serves POST /chat/completions, POST /completions (both streaming and not)
// and GET /models. Everything else gets a 404 error envelope.
//
//	cfg := openai.DefaultConfig("lorem")
//	cfg.HTTPClient = &http.Client{Transport: lorem.NewTransport(nil)}
type Transport struct {
	Generator *Generator

	// Delay returns the pause before each streamed frame. Nil uses StreamDelay.
	Delay func(model string) time.Duration

	Logger *slog.Logger
}

// NewTransport creates a Transport with its own Generator.
func NewTransport(logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transport{
		Generator: NewGenerator(logger),
		Logger:    logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer req.Body.Close()
	}

	if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
		return errorResponse(req, http.StatusUnauthorized, "invalid_request_error", "", "missing bearer token"), nil
	}

	path := req.URL.Path
	switch {
	case req.Method == http.MethodGet && strings.HasSuffix(path, "/models"):
		return t.listModels(req)
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/chat/completions"):
		return t.chat(req)
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/completions"):
		return t.completions(req)
	default:
		return errorResponse(req, http.StatusNotFound, "invalid_request_error", "unknown_url",
			fmt.Sprintf("unknown endpoint %s %s", req.Method, path)), nil
	}
}

func (t *Transport) listModels(req *http.Request) (*http.Response, error) {
	type model struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
		Created int64  `json:"created"`
	}
	list := struct {
		Object string  `json:"object"`
		Data   []model `json:"data"`
	}{Object: "list"}
	for _, id := range Models {
		list.Data = append(list.Data, model{ID: id, Object: "model", OwnedBy: "lorem", Created: 1493596800})
	}
	return jsonResponse(req, http.StatusOK, list)
}

func (t *Transport) chat(req *http.Request) (*http.Response, error) {
	var args openai.ChatArguments
	if resp := decodeRequest(req, &args); resp != nil {
		return resp, nil
	}
	if resp := checkModel(req, args.Model); resp != nil {
		return resp, nil
	}
	maxTokens := deref(args.MaxTokens)

	t.logger().Info("[LOREM] chat request", "model", args.Model, "stream", args.Stream, "max_tokens", maxTokens)

	if !args.Stream {
		promptTokens := 0
		for _, m := range args.Messages {
			promptTokens += len(strings.Fields(m.Content))
		}
		return jsonResponse(req, http.StatusOK, t.Generator.ChatCompletion(args.Model, maxTokens, promptTokens))
	}
	return t.streamResponse(req, args.Model, t.Generator.ChatChunks(args.Model, maxTokens))
}

func (t *Transport) completions(req *http.Request) (*http.Response, error) {
	var args openai.CompletionArguments
	if resp := decodeRequest(req, &args); resp != nil {
		return resp, nil
	}
	if resp := checkModel(req, args.Model); resp != nil {
		return resp, nil
	}
	maxTokens := deref(args.MaxTokens)

	t.logger().Info("[LOREM] completion request", "model", args.Model, "stream", args.Stream, "max_tokens", maxTokens)

	if !args.Stream {
		return jsonResponse(req, http.StatusOK, t.Generator.Completion(args.Model, maxTokens))
	}
	return t.streamResponse(req, args.Model, t.Generator.CompletionChunks(args.Model, maxTokens))
}

// streamResponse writes events as frames on a pipe, pausing before each one.
func (t *Transport) streamResponse(req *http.Request, model string, events any) (*http.Response, error) {
	frames, err := encodeFrames(events)
	if err != nil {
		return nil, err
	}

	delay := StreamDelay
	if t.Delay != nil {
		delay = t.Delay
	}
	pause := delay(model)

	pr, pw := io.Pipe()
	go func() {
		ctx := req.Context()
		logger := t.logger()
		logger.Debug("[LOREM] stream started", "model", model, "frames", len(frames), "delay", pause)

		for i, frame := range frames {
			if err := sleep(ctx, pause); err != nil {
				pw.CloseWithError(err)
				return
			}
			if _, err := pw.Write(frame); err != nil {
				logger.Debug("[LOREM] stream abandoned by reader", "frame", i, "error", err)
				return
			}
		}
		_, _ = pw.Write(DoneFrame())
		pw.Close()
		logger.Debug("[LOREM] stream complete", "model", model)
	}()

	header := make(http.Header)
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          pr,
		ContentLength: -1,
		Request:       req,
	}, nil
}

func (t *Transport) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.Logger
}

func encodeFrames(events any) ([][]byte, error) {
	var frames [][]byte
	add := func(v any) error {
		frame, err := Frame(v)
		if err != nil {
			return err
		}
		frames = append(frames, frame)
		return nil
	}

	switch evs := events.(type) {
	case []openai.ChatChunk:
		for _, ev := range evs {
			if err := add(ev); err != nil {
				return nil, err
			}
		}
	case []openai.CompletionChunk:
		for _, ev := range evs {
			if err := add(ev); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("lorem: cannot stream %T", events)
	}
	return frames, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeRequest(req *http.Request, v any) *http.Response {
	if req.Body == nil {
		return errorResponse(req, http.StatusBadRequest, "invalid_request_error", "", "missing request body")
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return errorResponse(req, http.StatusBadRequest, "invalid_request_error", "", "invalid JSON body: "+err.Error())
	}
	return nil
}

func checkModel(req *http.Request, model string) *http.Response {
	if IsModel(model) {
		return nil
	}
	return errorResponse(req, http.StatusNotFound, "invalid_request_error", "model_not_found",
		fmt.Sprintf("The model `%s` does not exist", model))
}

func jsonResponse(req *http.Request, status int, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("lorem: failed to marshal response: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func errorResponse(req *http.Request, status int, errType, code, message string) *http.Response {
	body := map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
			"param":   nil,
			"code":    nilIfEmpty(code),
		},
	}
	resp, _ := jsonResponse(req, status, body)
	return resp
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
