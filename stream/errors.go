package stream

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for stream decoding failures.
// These can be checked with errors.Is().
var (
	// ErrMalformedFrame indicates a frame that does not carry the "data:" prefix.
	// Local to one frame: the stream continues.
	ErrMalformedFrame = errors.New("stream: malformed frame")

	// ErrCommentFrame indicates a frame made only of SSE comment lines (": keep-alive").
	// Local to one frame: the stream continues. Callers usually skip it.
	ErrCommentFrame = errors.New("stream: comment-only frame")

	// ErrMalformedPayload indicates a well-framed data frame whose payload failed to decode.
	// Local to one frame: the stream continues.
	ErrMalformedPayload = errors.New("stream: malformed payload")

	// ErrInvalidEncoding indicates bytes that are not valid UTF-8. Fatal.
	ErrInvalidEncoding = errors.New("stream: invalid UTF-8 in stream")
)

// FrameError reports a decode failure for a single frame.
type FrameError struct {
	Frame string // Raw frame text (truncated for display)
	Err   error  // Underlying error; wraps ErrMalformedFrame, ErrCommentFrame or ErrMalformedPayload
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("decode frame %q: %v", e.Frame, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// payloadError ties a decode failure to ErrMalformedPayload while keeping the
// decoder's own error reachable through errors.As.
type payloadError struct {
	err error
}

func (e *payloadError) Error() string {
	return fmt.Sprintf("%v: %v", ErrMalformedPayload, e.err)
}

func (e *payloadError) Unwrap() []error {
	return []error{ErrMalformedPayload, e.err}
}

const maxFrameExcerpt = 120

func newFrameError(frame []byte, err error) *FrameError {
	excerpt := string(frame)
	if len(excerpt) > maxFrameExcerpt {
		excerpt = excerpt[:maxFrameExcerpt] + "..."
	}
	return &FrameError{Frame: excerpt, Err: err}
}

// IsFrameError reports whether err is a per-frame decode error.
// The stream remains usable after a frame error.
func IsFrameError(err error) bool {
	var frameErr *FrameError
	return errors.As(err, &frameErr)
}

// IsFatal reports whether err ended the stream.
// Anything other than a frame error or io.EOF (encoding errors, transport errors) is fatal.
func IsFatal(err error) bool {
	if err == nil || errors.Is(err, io.EOF) {
		return false
	}
	return !IsFrameError(err)
}
