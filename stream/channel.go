package stream

import "context"

// Result is one item delivered by Channel: an event or an error.
type Result[T any] struct {
	Event T
	Err   error
}

// Channel pumps d on a new goroutine and delivers results on the returned channel,
// which is closed when the stream is exhausted or ctx is cancelled.
// Per-frame errors are delivered and pumping continues; a fatal error is the last
// result. The decoder must not be used by anyone else while the pump runs.
func Channel[T any](ctx context.Context, d *Decoder[T], size int) <-chan Result[T] {
	out := make(chan Result[T], size)

	go func() {
		defer close(out)

		for ev, err := range d.All(ctx) {
			select {
			case out <- Result[T]{Event: ev, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
