// Package concurrency bounds the number of operations running at once.
//
// The Limiter is a counting semaphore:
//
//	lim, err := concurrency.New(8)
//	if err := lim.Acquire(ctx); err != nil {
//		return err
//	}
//	defer lim.Release()
//
// Acquire blocks until a slot frees up or the context is canceled;
// TryAcquire never blocks.
package concurrency
