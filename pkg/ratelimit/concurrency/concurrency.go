package concurrency

import (
	"context"

	"github.com/vnykmshr/restflow/pkg/common/validation"
)

// Limiter is a counting semaphore limiting concurrent operations.
type Limiter struct {
	sem chan struct{}
}

// New creates a limiter allowing at most limit concurrent operations.
func New(limit int) (*Limiter, error) {
	if err := validation.ValidatePositive("concurrency", "limit", limit); err != nil {
		return nil, err
	}
	return &Limiter{sem: make(chan struct{}, limit)}, nil
}

// Acquire blocks until a slot is available or the context is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot if one is free without blocking.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	select {
	case <-l.sem:
	default:
		panic("concurrency: Release without matching Acquire")
	}
}

// Active returns the number of slots currently taken.
func (l *Limiter) Active() int {
	return len(l.sem)
}

// Limit returns the maximum number of concurrent operations.
func (l *Limiter) Limit() int {
	return cap(l.sem)
}
