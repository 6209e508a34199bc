package collection

import (
	"context"
	"sync"

	"github.com/vnykmshr/restflow/pkg/streaming/stream"
)

// Streamer is a scoped streaming handle over a collection. It implements
// stream.Source, so it can feed stream pipelines. Callers should Close the
// handle when done with it:
//
//	s := coll.Stream()
//	defer s.Close()
//	for {
//		v, ok, err := s.Next(ctx)
//		...
//	}
//
// Closing a Streamer releases only the handle; the collection and its cache
// stay usable.
type Streamer[T any] struct {
	c      *Collection[T]
	mu     sync.Mutex
	pos    int
	closed bool
}

// Next advances the handle and returns the next element, or false when the
// collection is exhausted. The handle's lock is held across the pull so
// goroutines sharing one handle each observe a distinct position; the
// collection guards its cache with its own lock.
func (s *Streamer[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return zero, false, stream.ErrStreamClosed
	}

	value, ok, err := s.c.at(ctx, s.pos)
	if err != nil || !ok {
		return zero, false, err
	}
	s.pos++
	return value, true, nil
}

// Close releases the handle. Closing twice is a no-op.
func (s *Streamer[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ stream.Source[any] = (*Streamer[any])(nil)
