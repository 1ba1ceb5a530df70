package lorem

import (
	"context"
	"io"
	"math/rand/v2"
)

// Source replays a byte stream in chunks of fixed or random size. It implements
// stream.Source, so a decoder can be exercised against any chunking of a body.
type Source struct {
	data []byte
	pos  int
	size func() int
}

// NewSource returns a Source that yields chunks of exactly size bytes (the last
// one may be shorter). size < 1 is treated as 1.
func NewSource(data []byte, size int) *Source {
	size = max(size, 1)
	return &Source{data: data, size: func() int { return size }}
}

// NewRandomSource returns a Source whose chunk sizes are drawn uniformly from
// [1, maxSize] by a generator seeded with seed. The same seed always produces
// the same chunking.
func NewRandomSource(data []byte, seed uint64, maxSize int) *Source {
	maxSize = max(maxSize, 1)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Source{data: data, size: func() int { return 1 + rng.IntN(maxSize) }}
}

// Next returns the next chunk, or io.EOF once everything was replayed.
func (s *Source) Next(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.data) {
		return nil, io.EOF
	}

	end := min(s.pos+s.size(), len(s.data))
	chunk := s.data[s.pos:end]
	s.pos = end
	return chunk, nil
}

// Remaining returns the number of bytes not yet replayed.
func (s *Source) Remaining() int {
	return len(s.data) - s.pos
}
