package openai

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
// These can be checked with errors.Is().
var (
	// ErrInvalidAPIKey indicates the API key is missing, malformed, or unauthorized.
	ErrInvalidAPIKey = errors.New("openai: invalid API key")

	// ErrInvalidModel indicates the requested model does not exist or does not serve the endpoint.
	ErrInvalidModel = errors.New("openai: invalid or unsupported model")

	// ErrRateLimited indicates the rate limit or quota has been exceeded.
	ErrRateLimited = errors.New("openai: rate limit exceeded")

	// ErrInvalidRequest indicates the request parameters are invalid.
	ErrInvalidRequest = errors.New("openai: invalid request")

	// ErrProviderUnavailable indicates the API is down or unreachable.
	ErrProviderUnavailable = errors.New("openai: service unavailable")

	// ErrTimeout indicates the server gave up on the request.
	ErrTimeout = errors.New("openai: request timed out")

	// ErrEmptyResponse indicates a response without any choice or data item.
	ErrEmptyResponse = errors.New("openai: empty response")

	// ErrNullEvent indicates a stream event whose payload is a JSON null.
	ErrNullEvent = errors.New("openai: null event payload")
)

// APIError is an error reported by the API, either as a non-2xx response or as an
// error frame in the middle of a stream.
type APIError struct {
	StatusCode int    // HTTP status code; 0 for in-band stream errors
	Type       string // e.g. "invalid_request_error"
	Code       string // e.g. "model_not_found"
	Param      string // offending parameter, if reported
	Message    string
	Retryable  bool
	Err        error // wrapped sentinel (ErrRateLimited, ErrInvalidModel, ...)
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("openai API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openai API error: %s", e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError represents an error in request parameter validation.
type ValidationError struct {
	Field  string // The parameter field that failed validation
	Value  any    // The invalid value
	Reason string // Human-readable explanation
	Err    error  // Wrapped error (usually ErrInvalidRequest or ErrInvalidModel)
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for '%s' (value: %v): %s (%v)", e.Field, e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for '%s' (value: %v): %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// apiErrorBody is the JSON envelope the API uses for errors, in responses and in streams.
type apiErrorBody struct {
	Error *apiErrorDetail `json:"error"`
}

type apiErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    any    `json:"code"` // string on OpenAI, number on some compatible servers
}

// newAPIError maps a status code and error envelope to an *APIError.
func newAPIError(status int, body apiErrorBody, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if body.Error != nil {
		apiErr.Message = body.Error.Message
		apiErr.Type = body.Error.Type
		apiErr.Param = body.Error.Param
		if body.Error.Code != nil {
			apiErr.Code = fmt.Sprint(body.Error.Code)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = string(raw)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		apiErr.Err = ErrInvalidAPIKey
	case status == http.StatusTooManyRequests:
		apiErr.Err = ErrRateLimited
		apiErr.Retryable = true
	case status == http.StatusRequestTimeout:
		apiErr.Err = ErrTimeout
		apiErr.Retryable = true
	case status == http.StatusNotFound || apiErr.Code == "model_not_found":
		apiErr.Err = ErrInvalidModel
	case status >= 500:
		apiErr.Err = ErrProviderUnavailable
		apiErr.Retryable = true
	case status >= 400:
		apiErr.Err = ErrInvalidRequest
	default:
		// In-band stream error: no status to go by.
		apiErr.Err = ErrProviderUnavailable
	}
	return apiErr
}

// IsRetryable checks if an error is potentially retryable.
// Returns true for rate limits, timeouts and server-side failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}

	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsInvalidRequest checks if an error indicates invalid request parameters.
// These errors are not retryable and require request changes.
func IsInvalidRequest(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidModel) {
		return true
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsAuthError checks if an error is related to authentication.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey)
}
