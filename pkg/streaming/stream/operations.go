package stream

import (
	"context"
)

// filterSource drops elements that do not match the predicate.
type filterSource[T any] struct {
	src       Source[T]
	predicate func(T) bool
}

func (f *filterSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for {
		value, ok, err := f.src.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		if f.predicate(value) {
			return value, true, nil
		}
	}
}

func (f *filterSource[T]) Close() error {
	return f.src.Close()
}

// mapSource transforms elements from one type to another.
type mapSource[T, U any] struct {
	src    Source[T]
	mapper func(T) U
}

func (m *mapSource[T, U]) Next(ctx context.Context) (U, bool, error) {
	var zero U

	value, ok, err := m.src.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	return m.mapper(value), true, nil
}

func (m *mapSource[T, U]) Close() error {
	return m.src.Close()
}

// peekSource performs an action on each element without modifying it.
type peekSource[T any] struct {
	src    Source[T]
	action func(T)
}

func (p *peekSource[T]) Next(ctx context.Context) (T, bool, error) {
	value, ok, err := p.src.Next(ctx)
	if err != nil || !ok {
		return value, false, err
	}
	p.action(value)
	return value, true, nil
}

func (p *peekSource[T]) Close() error {
	return p.src.Close()
}

// skipSource skips the first count elements.
type skipSource[T any] struct {
	src     Source[T]
	count   int64
	skipped int64
}

func (s *skipSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for s.skipped < s.count {
		_, ok, err := s.src.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		s.skipped++
	}
	return s.src.Next(ctx)
}

func (s *skipSource[T]) Close() error {
	return s.src.Close()
}

// limitSource truncates the stream after maxSize elements.
type limitSource[T any] struct {
	src     Source[T]
	maxSize int64
	count   int64
}

func (l *limitSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	if l.count >= l.maxSize {
		return zero, false, nil
	}
	value, ok, err := l.src.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	l.count++
	return value, true, nil
}

func (l *limitSource[T]) Close() error {
	return l.src.Close()
}
