package request

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/restflow/pkg/metrics"
	"github.com/vnykmshr/restflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/restflow/pkg/ratelimit/concurrency"
)

// Logging logs each request at debug level and failures at warn level.
func Logging(next Handler, logger zerolog.Logger) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		elapsed := time.Since(start)
		if err != nil {
			logger.Warn().
				Str("method", req.Method).
				Str("url", req.URL).
				Dur("duration", elapsed).
				Err(err).
				Msg("request failed")
			return nil, err
		}
		logger.Debug().
			Str("method", req.Method).
			Str("url", req.URL).
			Int("status", resp.Status).
			Dur("duration", elapsed).
			Msg("request complete")
		return resp, nil
	}
}

// Throttle blocks on the rate limiter before each request. Time spent
// waiting is recorded on reg, which may be nil.
func Throttle(next Handler, limiter bucket.Limiter, reg *metrics.Registry) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		start := time.Now()
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		reg.ObserveThrottleWait(time.Since(start))
		return next(ctx, req)
	}
}

// MaxInFlight bounds the number of concurrently executing requests.
func MaxInFlight(next Handler, limiter *concurrency.Limiter) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if err := limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer limiter.Release()
		return next(ctx, req)
	}
}

// Instrument records request count, duration and errors on reg, which may
// be nil.
func Instrument(next Handler, reg *metrics.Registry) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)

		status := 0
		if resp != nil {
			status = resp.Status
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			status = httpErr.Status
		}
		reg.ObserveRequest(req.Method, status, time.Since(start), err != nil)
		return resp, err
	}
}

const cacheKeyPrefix = "restflow:response:"

// Cache serves GET responses from redis, keyed by URL and query params.
// Successful response data is stored JSON-encoded with the given TTL;
// store failures are silently dropped. Lookup outcomes are recorded on
// reg, which may be nil.
func Cache(next Handler, rdb redis.UniversalClient, ttl time.Duration, reg *metrics.Registry) Handler {
	return func(ctx context.Context, req *Request) (*Response, error) {
		if req.Method != http.MethodGet {
			return next(ctx, req)
		}
		key := cacheKeyPrefix + req.URL + "?" + req.Params.Encode()

		if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
			var data any
			if json.Unmarshal(raw, &data) == nil {
				reg.ObserveCache(true)
				return &Response{
					Status: http.StatusOK,
					Reason: http.StatusText(http.StatusOK),
					Data:   data,
					Extra:  map[string]any{},
				}, nil
			}
		}
		reg.ObserveCache(false)

		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.Status < 300 {
			if buf, merr := json.Marshal(resp.Data); merr == nil {
				rdb.Set(ctx, key, buf, ttl)
			}
		}
		return resp, nil
	}
}
