package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vnykmshr/restflow/pkg/streaming/stream"
)

// ErrIndexOutOfRange is returned when Get is asked for an element beyond
// the end of the collection.
var ErrIndexOutOfRange = errors.New("collection index out of range")

// Collection is a cached, replayable view over a lazy source. Elements are
// pulled from the source only as far as callers need them; every element
// pulled is cached, so repeated iteration, indexing and slicing never
// consume the source twice.
type Collection[T any] struct {
	mu     sync.Mutex
	items  []T
	source stream.Source[T]
	done   bool
}

// FromSlice creates a fully loaded collection from a slice.
func FromSlice[T any](items []T) *Collection[T] {
	return &Collection[T]{items: items, done: true}
}

// FromSource creates a lazy collection backed by the given source. The
// source is consumed at most once and closed when exhausted.
func FromSource[T any](source stream.Source[T]) *Collection[T] {
	return &Collection[T]{source: source}
}

// Loaded reports whether the underlying source has been fully drained.
// Collections built from slices are loaded from the start.
func (c *Collection[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// at returns the element at pos, pulling from the source as needed.
// The second return is false when pos is past the end.
func (c *Collection[T]) at(ctx context.Context, pos int) (T, bool, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	for pos >= len(c.items) && !c.done {
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}
		value, ok, err := c.source.Next(ctx)
		if err != nil {
			// Errors are not cached; the collection stays resumable.
			return zero, false, err
		}
		if !ok {
			c.done = true
			_ = c.source.Close()
			c.source = nil
			break
		}
		c.items = append(c.items, value)
	}

	if pos < len(c.items) {
		return c.items[pos], true, nil
	}
	return zero, false, nil
}

// load drains the remaining source elements into the cache.
func (c *Collection[T]) load(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for !c.done {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		value, ok, err := c.source.Next(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			c.done = true
			_ = c.source.Close()
			c.source = nil
			break
		}
		c.items = append(c.items, value)
	}
	return len(c.items), nil
}

// ToSlice drains the collection and returns a copy of all elements. The
// call is repeatable; after the first drain it is served from the cache.
func (c *Collection[T]) ToSlice(ctx context.Context) ([]T, error) {
	n, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, n)
	copy(out, c.items)
	return out, nil
}

// Len drains the collection and returns the number of elements.
func (c *Collection[T]) Len(ctx context.Context) (int, error) {
	return c.load(ctx)
}

// Get returns the element at index i, pulling from the source only as far
// as needed. A negative index counts from the end and forces a full load.
func (c *Collection[T]) Get(ctx context.Context, i int) (T, error) {
	var zero T

	if i < 0 {
		n, err := c.load(ctx)
		if err != nil {
			return zero, err
		}
		i += n
		if i < 0 {
			return zero, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i-n)
		}
	}

	value, ok, err := c.at(ctx, i)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return value, nil
}

// Slice returns a copy of the elements in [lo, hi). Negative bounds count
// from the end; hi == -1 means "to the end". Bounds are clamped to the
// available range, so over-long slices do not fail.
func (c *Collection[T]) Slice(ctx context.Context, lo, hi int) ([]T, error) {
	if lo < 0 || hi < 0 {
		n, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		if lo < 0 {
			lo = max(n+lo, 0)
		}
		if hi < 0 {
			hi = max(n+hi+1, 0)
		}
	} else if hi > 0 {
		// Pull just enough to cover the requested range.
		if _, _, err := c.at(ctx, hi-1); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if hi > len(c.items) {
		hi = len(c.items)
	}
	if lo > hi {
		lo = hi
	}
	out := make([]T, hi-lo)
	copy(out, c.items[lo:hi])
	return out, nil
}

// Each iterates over all elements in order, stopping at the first error
// returned by fn.
func (c *Collection[T]) Each(ctx context.Context, fn func(T) error) error {
	s := c.Stream()
	defer s.Close()

	for {
		value, ok, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(value); err != nil {
			return err
		}
	}
}

// Stream returns a new streaming handle over the collection. Handles replay
// the cached prefix and then continue pulling the shared source, so any
// number of them observe the same element order.
func (c *Collection[T]) Stream() *Streamer[T] {
	return &Streamer[T]{c: c}
}
