package stream

import (
	"context"
)

// sliceSource implements Source for slices.
type sliceSource[T any] struct {
	slice []T
	index int
}

func (s *sliceSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	default:
	}

	if s.index >= len(s.slice) {
		return zero, false, nil
	}
	value := s.slice[s.index]
	s.index++
	return value, true, nil
}

func (s *sliceSource[T]) Close() error {
	return nil
}

// channelSource implements Source for channels.
type channelSource[T any] struct {
	ch <-chan T
}

func (s *channelSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	select {
	case value, ok := <-s.ch:
		if !ok {
			return zero, false, nil
		}
		return value, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (s *channelSource[T]) Close() error {
	return nil
}

// funcSource implements Source for pull functions.
type funcSource[T any] struct {
	next func(ctx context.Context) (T, bool, error)
	done bool
}

func (s *funcSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	if s.done {
		return zero, false, nil
	}

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	default:
	}

	value, ok, err := s.next(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		s.done = true
		return zero, false, nil
	}
	return value, true, nil
}

func (s *funcSource[T]) Close() error {
	s.done = true
	return nil
}

// emptySource implements Source for empty streams.
type emptySource[T any] struct{}

func (s *emptySource[T]) Next(_ context.Context) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (s *emptySource[T]) Close() error {
	return nil
}
