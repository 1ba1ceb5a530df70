// Package stream decodes chunked "data: <json>\n\n" event streams into typed events.
//
// A Decoder is driven entirely by its caller. Each pull either serves a frame that
// is already buffered, or reads exactly one chunk from the Source and tries again.
// Bytes never get lost or delivered twice across pulls, whatever the chunk boundaries.
//
//	dec := stream.NewDecoder(stream.NewReaderSource(resp.Body, 0), decodeChunk)
//	for ev, err := range dec.All(ctx) {
//		if err != nil { ... }
//		...
//	}
package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"unicode/utf8"
)

// Status is the outcome of a single Poll.
type Status int

const (
	// StatusPending means one chunk was consumed but no frame is complete yet.
	StatusPending Status = iota

	// StatusReady means a frame was resolved: an event, or a per-frame error.
	StatusReady

	// StatusDone means the stream is exhausted. No further events will be produced.
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusDone:
		return "done"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// State is the decoder's lifecycle state.
type State int

const (
	// StateActive may still produce events; the next pull may need to read.
	StateActive State = iota

	// StateDraining has at least one more complete frame buffered; the next
	// pull is served without touching the source.
	StateDraining

	// StateExhausted is terminal.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DecodeFunc turns a frame payload into an event.
// payload is owned by the callee and never reused by the decoder.
type DecodeFunc[T any] func(payload []byte) (T, error)

// Option configures a Decoder.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for debug output (skipped blank frames,
// discarded trailing bytes). The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Decoder turns a Source of raw chunks into a sequence of events of type T.
// A Decoder is owned by a single caller and is not safe for concurrent use.
type Decoder[T any] struct {
	src    Source
	decode DecodeFunc[T]
	logger *slog.Logger

	buf     []byte // unresolved tail of the stream
	checked int    // length of the buf prefix known to be valid UTF-8
	state   State
}

// NewDecoder creates a Decoder reading from src and decoding payloads with decode.
func NewDecoder[T any](src Source, decode DecodeFunc[T], opts ...Option) *Decoder[T] {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Decoder[T]{
		src:    src,
		decode: decode,
		logger: o.logger,
		state:  StateActive,
	}
}

// State returns the current lifecycle state.
func (d *Decoder[T]) State() State {
	return d.state
}

// Buffered returns the number of received bytes not yet resolved into a frame.
func (d *Decoder[T]) Buffered() int {
	return len(d.buf)
}

// Poll advances the decoder by at most one source chunk.
//
//   - StatusReady: a frame was resolved. err is nil (event is valid) or a *FrameError
//     local to that frame; the stream continues either way.
//   - StatusPending: a chunk was consumed but no frame is complete; poll again.
//   - StatusDone: the stream is exhausted. err is nil on a clean end, or the fatal
//     error (transport, ErrInvalidEncoding) that ended it. Every later Poll returns
//     StatusDone with a nil error.
func (d *Decoder[T]) Poll(ctx context.Context) (T, Status, error) {
	var zero T
	if d.state == StateExhausted {
		return zero, StatusDone, nil
	}

	if ev, status, err := d.drain(); status != StatusPending {
		return ev, status, err
	}

	chunk, err := d.src.Next(ctx)
	if errors.Is(err, io.EOF) {
		return d.finish()
	}
	if err != nil {
		d.exhaust()
		return zero, StatusDone, err
	}
	if len(chunk) == 0 {
		return zero, StatusPending, nil
	}

	d.buf = append(d.buf, chunk...)
	if err := d.validate(); err != nil {
		d.exhaust()
		return zero, StatusDone, err
	}

	return d.drain()
}

// Next returns the next event. It blocks on the source as many times as needed.
// It returns io.EOF once the stream is exhausted, on every call after that too.
// A *FrameError leaves the stream usable; any other error is fatal and is
// followed by io.EOF.
func (d *Decoder[T]) Next(ctx context.Context) (T, error) {
	for {
		ev, status, err := d.Poll(ctx)
		switch status {
		case StatusReady:
			return ev, err
		case StatusDone:
			if err != nil {
				return ev, err
			}
			return ev, io.EOF
		}
	}
}

// NextBatch returns all events resolved from the next source chunk, preceded by any
// events that were already buffered. It returns io.EOF once the stream is exhausted
// and nothing was collected. An error stops the batch early: the events decoded
// before it are returned along with it.
func (d *Decoder[T]) NextBatch(ctx context.Context) ([]T, error) {
	var batch []T
	for {
		ev, status, err := d.Poll(ctx)
		switch status {
		case StatusPending:
			if len(batch) > 0 {
				return batch, nil
			}
		case StatusReady:
			if err != nil {
				return batch, err
			}
			batch = append(batch, ev)
			if d.state != StateDraining {
				return batch, nil
			}
		case StatusDone:
			if err != nil {
				return batch, err
			}
			if len(batch) > 0 {
				return batch, nil
			}
			return nil, io.EOF
		}
	}
}

// All returns an iterator over the remaining events. Per-frame errors are yielded
// with a zero event and iteration continues; a fatal error is yielded last.
func (d *Decoder[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			ev, err := d.Next(ctx)
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || IsFatal(err) {
				return
			}
		}
	}
}

// drain resolves the first buffered frame. StatusPending means none is complete.
func (d *Decoder[T]) drain() (T, Status, error) {
	var zero T
	for {
		raw, advance, ok := Split(d.buf)
		if !ok {
			d.state = StateActive
			return zero, StatusPending, nil
		}

		frame, err := ParseFrame(raw)
		d.consume(advance)
		if err != nil {
			d.markResolved()
			return zero, StatusReady, err
		}

		switch frame.Kind {
		case FrameIgnore:
			d.logger.Debug("stream: skipped blank frame", "bytes", advance)
			continue
		case FrameDone:
			if len(d.buf) > 0 {
				d.logger.Debug("stream: discarding bytes after termination frame", "bytes", len(d.buf))
			}
			d.exhaust()
			return zero, StatusDone, nil
		}

		ev, err := d.decodePayload(frame.Payload)
		d.markResolved()
		return ev, StatusReady, err
	}
}

// finish handles end of data from the source.
func (d *Decoder[T]) finish() (T, Status, error) {
	var zero T
	defer d.exhaust()

	if d.checked < len(d.buf) {
		return zero, StatusDone, fmt.Errorf("%w: stream ends inside a multi-byte sequence", ErrInvalidEncoding)
	}

	tail := bytes.TrimSpace(d.buf)
	if len(tail) == 0 {
		return zero, StatusDone, nil
	}

	frame, err := ParseFrame(tail)
	if err == nil && frame.Kind == FrameDone {
		return zero, StatusDone, nil
	}
	if err == nil && frame.Kind == FrameData && CompletePayload(frame.Payload) {
		ev, err := d.decodePayload(frame.Payload)
		return ev, StatusReady, err
	}

	d.logger.Debug("stream: discarding incomplete trailing frame", "bytes", len(d.buf))
	return zero, StatusDone, nil
}

func (d *Decoder[T]) decodePayload(payload []byte) (T, error) {
	ev, err := d.decode(payload)
	if err != nil {
		var zero T
		return zero, newFrameError(payload, &payloadError{err: err})
	}
	return ev, nil
}

// validate checks the not-yet-validated suffix of buf. An incomplete rune at the
// very end is left unchecked until more bytes arrive.
func (d *Decoder[T]) validate() error {
	for d.checked < len(d.buf) {
		p := d.buf[d.checked:]
		if p[0] < utf8.RuneSelf {
			d.checked++
			continue
		}
		if !utf8.FullRune(p) {
			return nil
		}
		r, size := utf8.DecodeRune(p)
		if r == utf8.RuneError && size == 1 {
			return fmt.Errorf("%w: invalid byte 0x%02x", ErrInvalidEncoding, p[0])
		}
		d.checked += size
	}
	return nil
}

// consume strips the first n bytes of buf.
func (d *Decoder[T]) consume(n int) {
	d.buf = d.buf[:copy(d.buf, d.buf[n:])]
	d.checked = max(d.checked-n, 0)
}

func (d *Decoder[T]) markResolved() {
	if HasFrame(d.buf) {
		d.state = StateDraining
	} else {
		d.state = StateActive
	}
}

func (d *Decoder[T]) exhaust() {
	d.state = StateExhausted
	d.buf = nil
	d.checked = 0
}
