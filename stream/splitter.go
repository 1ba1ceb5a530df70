package stream

import (
	"bytes"
	"encoding/json"
)

// DoneMarker is the payload of the frame that terminates a stream.
const DoneMarker = "[DONE]"

var dataPrefix = []byte("data:")

// Frame delimiters, in the order they are tried. A frame ends at the earliest match.
var delimiters = [][]byte{
	[]byte("\r\n\r\n"),
	[]byte("\n\n"),
	[]byte("\r\r"),
}

// FrameKind classifies a parsed frame.
type FrameKind int

const (
	// FrameData carries a payload to decode into an event.
	FrameData FrameKind = iota

	// FrameDone is the termination marker ("data: [DONE]").
	FrameDone

	// FrameIgnore is a blank frame, such as the empty segment between two delimiters.
	FrameIgnore
)

func (k FrameKind) String() string {
	switch k {
	case FrameData:
		return "data"
	case FrameDone:
		return "done"
	case FrameIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// Frame is one delimiter-bounded unit of the wire text.
type Frame struct {
	Kind FrameKind

	// Payload is the text after the "data:" prefix (nil unless Kind is FrameData).
	// It never aliases the buffer it was parsed from.
	Payload []byte
}

// Split finds the first complete frame in buf.
// It returns the frame without its delimiter and the number of bytes to strip from
// the front of buf to consume frame and delimiter. ok is false when buf holds no
// complete frame yet; that is not an error, the caller should wait for more bytes.
func Split(buf []byte) (frame []byte, advance int, ok bool) {
	end, delimLen := -1, 0
	for _, delim := range delimiters {
		i := bytes.Index(buf, delim)
		if i >= 0 && (end < 0 || i < end) {
			end, delimLen = i, len(delim)
		}
	}
	if end < 0 {
		return nil, 0, false
	}
	return buf[:end], end + delimLen, true
}

// HasFrame reports whether buf already holds a complete frame that resolves a pull,
// i.e. whether the next pull can be served without reading from the source.
// Blank frames are skipped by the decoder, so they do not count.
func HasFrame(buf []byte) bool {
	for {
		raw, advance, ok := Split(buf)
		if !ok {
			return false
		}
		if !blankFrame(raw) {
			return true
		}
		buf = buf[advance:]
	}
}

// blankFrame reports whether frame has no content besides line breaks.
func blankFrame(frame []byte) bool {
	return len(bytes.Trim(frame, "\r\n")) == 0
}

// ParseFrame strips the "data:" prefix from every line of frame and classifies it.
// One space after the colon is optional, multiple data lines are joined with "\n",
// and lines starting with ':' are comments. Any other line is ErrMalformedFrame.
// A frame holding only comments is ErrCommentFrame; a blank one is FrameIgnore.
func ParseFrame(frame []byte) (Frame, error) {
	if blankFrame(frame) {
		return Frame{Kind: FrameIgnore}, nil
	}

	var payload []byte
	sawData := false

	rest := frame
	for len(rest) > 0 {
		line := rest
		rest = nil
		if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
			rest = line[i+1:]
			if line[i] == '\r' && len(rest) > 0 && rest[0] == '\n' {
				rest = rest[1:]
			}
			line = line[:i]
		}

		if len(line) == 0 || line[0] == ':' {
			continue
		}

		value, ok := bytes.CutPrefix(line, dataPrefix)
		if !ok {
			return Frame{}, newFrameError(frame, ErrMalformedFrame)
		}
		value = bytes.TrimPrefix(value, []byte(" "))

		if sawData {
			payload = append(payload, '\n')
		}
		payload = append(payload, value...)
		sawData = true
	}

	if !sawData {
		return Frame{}, newFrameError(frame, ErrCommentFrame)
	}
	if string(bytes.TrimSpace(payload)) == DoneMarker {
		return Frame{Kind: FrameDone}, nil
	}
	return Frame{Kind: FrameData, Payload: payload}, nil
}

// CompletePayload reports whether payload is a whole frame body rather than a
// fragment still in transmission: the termination marker, or a syntactically
// complete JSON object.
func CompletePayload(payload []byte) bool {
	p := bytes.TrimSpace(payload)
	if string(p) == DoneMarker {
		return true
	}
	if len(p) < 2 || p[0] != '{' || p[len(p)-1] != '}' {
		return false
	}
	return json.Valid(p)
}
