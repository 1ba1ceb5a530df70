package stream

import (
	"context"
	"io"
)

// DefaultChunkSize is the read size ReaderSource uses when none is given.
const DefaultChunkSize = 4096

// Source yields raw byte chunks of a stream, typically an HTTP response body.
//
// Next returns the next chunk, io.EOF once the data is exhausted, or any other
// error to abort the stream. The returned slice is only valid until the next call;
// the decoder copies what it keeps.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]byte, error)

// Next calls f(ctx).
func (f SourceFunc) Next(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// ReaderSource turns an io.Reader into a Source, one Read per chunk.
type ReaderSource struct {
	r   io.Reader
	buf []byte
	err error // sticky; set when a Read returned data together with an error
}

// NewReaderSource creates a ReaderSource reading up to chunkSize bytes per chunk.
// A chunkSize <= 0 selects DefaultChunkSize.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &ReaderSource{
		r:   r,
		buf: make([]byte, chunkSize),
	}
}

// Next performs a single Read on the underlying reader.
func (s *ReaderSource) Next(ctx context.Context) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := s.r.Read(s.buf)
	if err != nil {
		s.err = err
	}
	if n > 0 {
		// Data first; the error (often io.EOF) is reported on the next call.
		return s.buf[:n], nil
	}
	return nil, err
}

type sliceSource struct {
	chunks [][]byte
	next   int
}

// Chunks returns a Source that yields the given chunks in order, then io.EOF.
func Chunks(chunks ...[]byte) Source {
	return &sliceSource{chunks: chunks}
}

func (s *sliceSource) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.next]
	s.next++
	return chunk, nil
}
