package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	rferrors "github.com/vnykmshr/restflow/pkg/common/errors"
	"github.com/vnykmshr/restflow/pkg/common/validation"
)

// Limit defines the maximum event rate as events per second.
// A zero Limit allows no refill; Inf allows all events.
type Limit float64

// Inf is the infinite rate limit; it allows all events.
var Inf = Limit(math.Inf(1))

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Limiter controls how frequently events are allowed to happen.
type Limiter interface {
	// Allow reports whether an event may happen now.
	Allow() bool
	// AllowN reports whether n events may happen now.
	AllowN(n int) bool
	// Wait blocks until an event can happen or the context is canceled.
	Wait(ctx context.Context) error
	// WaitN blocks until n events can happen or the context is canceled.
	WaitN(ctx context.Context, n int) error
	// Tokens returns the number of tokens currently available.
	Tokens() float64
	// Limit returns the current rate limit.
	Limit() Limit
	// Burst returns the current burst size.
	Burst() int
	// SetLimit changes the rate limit.
	SetLimit(newLimit Limit)
	// SetBurst changes the burst size.
	SetBurst(newBurst int) error
}

// Config holds token bucket configuration.
type Config struct {
	// Rate is the sustained refill rate in tokens per second.
	Rate Limit
	// Burst is the bucket capacity.
	Burst int
	// Clock overrides the time source; nil uses the system clock.
	Clock Clock
}

// tokenBucket is the default Limiter implementation.
type tokenBucket struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
}

// New creates a token bucket limiter with the given rate and burst.
func New(rate Limit, burst int) (Limiter, error) {
	return NewWithConfig(Config{Rate: rate, Burst: burst})
}

// NewWithConfig creates a token bucket limiter from a Config.
func NewWithConfig(config Config) (Limiter, error) {
	if err := validation.ValidateNonNegative("bucket", "rate", float64(config.Rate)); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("bucket", "burst", config.Burst); err != nil {
		return nil, err
	}
	clock := config.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &tokenBucket{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     float64(config.Burst),
		lastUpdate: clock.Now(),
		clock:      clock,
	}, nil
}

func (tb *tokenBucket) Allow() bool {
	return tb.AllowN(1)
}

func (tb *tokenBucket) AllowN(n int) bool {
	if n <= 0 {
		return true
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.advance(tb.clock.Now())
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

func (tb *tokenBucket) Wait(ctx context.Context) error {
	return tb.WaitN(ctx, 1)
}

func (tb *tokenBucket) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	tb.mu.Lock()
	now := tb.clock.Now()
	tb.advance(now)

	if tb.limit == Inf {
		tb.mu.Unlock()
		return nil
	}
	if n > tb.burst || (tb.limit == 0 && tb.tokens < float64(n)) {
		// The wait could never be satisfied.
		tb.mu.Unlock()
		return rferrors.ErrRateLimited
	}

	tb.tokens -= float64(n)
	var delay time.Duration
	if tb.tokens < 0 {
		delay = time.Duration(-tb.tokens / float64(tb.limit) * float64(time.Second))
	}
	tb.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		tb.refund(n)
		return ctx.Err()
	}
}

func (tb *tokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.advance(tb.clock.Now())
	return tb.tokens
}

func (tb *tokenBucket) Limit() Limit {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limit
}

func (tb *tokenBucket) Burst() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.burst
}

func (tb *tokenBucket) SetLimit(newLimit Limit) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.advance(tb.clock.Now())
	tb.limit = newLimit
}

func (tb *tokenBucket) SetBurst(newBurst int) error {
	if err := validation.ValidatePositive("bucket", "burst", newBurst); err != nil {
		return err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.advance(tb.clock.Now())
	tb.burst = newBurst
	if tb.tokens > float64(newBurst) {
		tb.tokens = float64(newBurst)
	}
	return nil
}

// advance refills tokens for the time elapsed since the last update.
// Callers must hold mu.
func (tb *tokenBucket) advance(now time.Time) {
	if tb.limit == Inf {
		tb.tokens = float64(tb.burst)
		tb.lastUpdate = now
		return
	}

	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(tb.tokens+elapsed.Seconds()*float64(tb.limit), float64(tb.burst))
	tb.lastUpdate = now
}

// refund restores tokens from an abandoned wait.
func (tb *tokenBucket) refund(n int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.tokens = math.Min(tb.tokens+float64(n), float64(tb.burst))
}
