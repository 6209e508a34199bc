/*
Package ratelimit provides rate limiting primitives.

Two limiters cover the request pipeline's needs:

  - bucket: token bucket allowing controlled bursts

	lim, err := bucket.New(10, 5) // 10 tokens/sec, burst of 5
	if err := lim.Wait(ctx); err != nil {
		return err
	}

  - concurrency: counting semaphore bounding in-flight operations

	lim, err := concurrency.New(8)
	if err := lim.Acquire(ctx); err != nil {
		return err
	}
	defer lim.Release()

Both support context-aware blocking and non-blocking variants.
*/
package ratelimit
