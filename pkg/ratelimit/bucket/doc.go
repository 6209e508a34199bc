// Package bucket implements a token bucket rate limiter.
//
// The bucket starts full with Burst tokens and refills at Rate tokens per
// second. Allow consumes a token without blocking; Wait blocks until a
// token becomes available or the context is canceled.
//
//	limiter, err := bucket.New(10, 20) // 10 RPS, burst 20
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
//	// proceed with the request
//
// Waits that can never be satisfied (n larger than the burst, or a zero
// rate with an empty bucket) fail immediately with ErrRateLimited. The
// Clock in Config exists for tests; production code should leave it nil.
package bucket
