// Package openai is a client for the OpenAI HTTP API and compatible servers.
//
// Streaming responses are decoded incrementally by the stream package:
//
//	client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
//	...
//	chat, err := client.CreateChatStream(ctx, openai.NewChatArguments("gpt-4o-mini",
//		openai.ChatMessage{Role: openai.RoleUser, Content: "Hello"}))
//	...
//	defer chat.Close()
//	for chunk, err := range chat.All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Print(chunk)
//	}
package openai

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
)

// Client talks to one API endpoint with one key. It is safe for concurrent use.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	validator  *ValidationEngine
}

// NewClient creates a client for the public API with the given key.
func NewClient(apiKey string) (*Client, error) {
	return NewClientWithConfig(DefaultConfig(apiKey))
}

// NewClientWithConfig creates a client from an explicit configuration.
func NewClientWithConfig(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrInvalidAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: newTransport(cfg.Timeout)}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		validator:  GetValidationEngine(),
	}, nil
}

// newTransport bounds the wait for response headers only. A whole-request
// timeout would cut off streams that outlive it.
func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.ResponseHeaderTimeout = timeout
	return t
}

// SetValidationEngine replaces the engine consulted before every request.
func (c *Client) SetValidationEngine(engine *ValidationEngine) {
	c.validator = engine
}

// validate logs the warnings for a request. With StrictValidation, the first
// error-severity warning is returned as a *ValidationError.
func (c *Client) validate(params *RequestParams) error {
	warnings := c.validator.Validate(params)
	for _, w := range warnings {
		level := slog.LevelWarn
		if w.Severity == SeverityInfo {
			level = slog.LevelDebug
		}
		c.logger.Log(context.Background(), level, "openai: request validation",
			"code", w.Code, "field", w.Field, "value", w.Value, "severity", w.Severity, "message", w.Message)
	}

	if !c.cfg.StrictValidation {
		return nil
	}
	for _, w := range FilterWarningsBySeverity(warnings, SeverityError) {
		sentinel := ErrInvalidRequest
		if w.Category == "model" {
			sentinel = ErrInvalidModel
		}
		return &ValidationError{Field: w.Field, Value: w.Value, Reason: w.Message, Err: sentinel}
	}
	return nil
}

// newRequest builds an authenticated request. A nil body sends no payload.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Organization != "" {
		req.Header.Set("OpenAI-Organization", c.cfg.Organization)
	}
	return req, nil
}

// send performs req and maps non-2xx responses to errors. The caller owns the
// returned body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.Debug("openai: request", "method", req.Method, "path", req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai HTTP request failed: %w", err)
	}

	c.logger.Debug("openai: response", "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, c.handleErrorResponse(resp)
	}
	return resp, nil
}

// doJSON sends body and decodes the JSON response into out. Timeout bounds the
// whole exchange.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// openStream sends body and returns the open event-stream response. Once the
// headers are in, only ctx bounds the stream.
func (c *Client) openStream(ctx context.Context, path string, body any) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	return c.send(req)
}

// handleErrorResponse parses the API's error envelope.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == nil {
		// Fallback to plain text error
		body = apiErrorBody{}
	} else {
		raw = nil
	}

	apiErr := newAPIError(resp.StatusCode, body, bytes.TrimSpace(raw))
	c.logger.Debug("openai: API error", "status", resp.StatusCode, "type", apiErr.Type, "code", apiErr.Code)
	return apiErr
}
