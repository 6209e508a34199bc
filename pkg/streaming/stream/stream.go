package stream

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrStreamClosed is returned when attempting to operate on a closed stream.
var ErrStreamClosed = errors.New("stream is closed")

// Source represents a data source for streams. Sources are pulled one
// element at a time and must be safe to close more than once.
type Source[T any] interface {
	// Next returns the next element and true, or zero value and false if no more elements.
	Next(ctx context.Context) (T, bool, error)
	// Close closes the source and releases resources.
	Close() error
}

// Stream represents a lazy sequence of elements. Intermediate operations
// wrap the stream without consuming it; elements are pulled from the source
// only when a terminal operation runs. A Stream is itself a Source, so it
// can feed other streams or collections.
type Stream[T any] interface {
	Source[T]

	// Intermediate operations (lazy, return new Stream)

	// Filter returns a stream consisting of elements that match the given predicate.
	Filter(predicate func(T) bool) Stream[T]

	// Map returns a stream consisting of the results of applying the given function to elements.
	Map(mapper func(T) T) Stream[T]

	// Peek returns a stream that additionally performs the provided action
	// on each element as elements are consumed.
	Peek(action func(T)) Stream[T]

	// Skip returns a stream consisting of remaining elements after skipping n elements.
	Skip(n int64) Stream[T]

	// Limit returns a stream truncated to be no longer than maxSize elements.
	Limit(maxSize int64) Stream[T]

	// Terminal operations (eager, consume and close the stream)

	// ForEach performs an action for each element of the stream.
	ForEach(ctx context.Context, action func(T)) error

	// ToSlice returns a slice containing all elements.
	ToSlice(ctx context.Context) ([]T, error)

	// First returns the first element, if present.
	First(ctx context.Context) (T, bool, error)

	// Count returns the count of elements.
	Count(ctx context.Context) (int64, error)

	// IsClosed returns true if the stream is closed.
	IsClosed() bool
}

// lazyStream is the default implementation of Stream. It pulls elements
// from its source on demand; operations stack by wrapping the stream in a
// decorated source.
type lazyStream[T any] struct {
	source Source[T]
	closed atomic.Bool
}

// New creates a new Stream from a Source.
func New[T any](source Source[T]) Stream[T] {
	return &lazyStream[T]{source: source}
}

// FromSlice creates a Stream from a slice.
func FromSlice[T any](slice []T) Stream[T] {
	return New[T](&sliceSource[T]{slice: slice})
}

// FromChannel creates a Stream from a channel. The stream ends when the
// channel is closed.
func FromChannel[T any](ch <-chan T) Stream[T] {
	return New[T](&channelSource[T]{ch: ch})
}

// FromFunc creates a Stream from a pull function. The function reports no
// more elements by returning false.
func FromFunc[T any](next func(ctx context.Context) (T, bool, error)) Stream[T] {
	return New[T](&funcSource[T]{next: next})
}

// Empty creates an empty Stream.
func Empty[T any]() Stream[T] {
	return New[T](&emptySource[T]{})
}

func (s *lazyStream[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if s.closed.Load() {
		return zero, false, ErrStreamClosed
	}
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	default:
	}
	return s.source.Next(ctx)
}

func (s *lazyStream[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}
	return s.source.Close()
}

func (s *lazyStream[T]) IsClosed() bool {
	return s.closed.Load()
}

func (s *lazyStream[T]) Filter(predicate func(T) bool) Stream[T] {
	return New[T](&filterSource[T]{src: s, predicate: predicate})
}

func (s *lazyStream[T]) Map(mapper func(T) T) Stream[T] {
	return New[T](&mapSource[T, T]{src: s, mapper: mapper})
}

func (s *lazyStream[T]) Peek(action func(T)) Stream[T] {
	return New[T](&peekSource[T]{src: s, action: action})
}

func (s *lazyStream[T]) Skip(n int64) Stream[T] {
	return New[T](&skipSource[T]{src: s, count: n})
}

func (s *lazyStream[T]) Limit(maxSize int64) Stream[T] {
	return New[T](&limitSource[T]{src: s, maxSize: maxSize})
}

func (s *lazyStream[T]) ForEach(ctx context.Context, action func(T)) error {
	defer func() { _ = s.Close() }()

	for {
		value, ok, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		action(value)
	}
}

func (s *lazyStream[T]) ToSlice(ctx context.Context) ([]T, error) {
	defer func() { _ = s.Close() }()

	var result []T
	for {
		value, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return result, nil
		}
		result = append(result, value)
	}
}

func (s *lazyStream[T]) First(ctx context.Context) (T, bool, error) {
	defer func() { _ = s.Close() }()
	return s.Next(ctx)
}

func (s *lazyStream[T]) Count(ctx context.Context) (int64, error) {
	defer func() { _ = s.Close() }()

	var count int64
	for {
		_, ok, err := s.Next(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return count, nil
		}
		count++
	}
}

// Transform creates a stream of a different element type by applying mapper
// to every element of the input stream.
func Transform[T, U any](s Stream[T], mapper func(T) U) Stream[U] {
	return New[U](&mapSource[T, U]{src: s, mapper: mapper})
}
