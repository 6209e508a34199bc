// Package workerpool provides a fixed-size pool of workers consuming a
// bounded task queue.
//
// Basic usage:
//
//	pool, err := workerpool.New(4, 100) // 4 workers, queue size 100
//	if err != nil {
//		return err
//	}
//	defer func() { <-pool.Shutdown() }()
//
//	pool.Submit(func(ctx context.Context) {
//		// Do work
//	})
//
// Submission blocks while the queue is full. Tasks receive the context
// given at submission time and are skipped if it is already canceled when
// a worker picks them up. Shutdown is graceful: running tasks finish,
// queued tasks are discarded.
package workerpool
