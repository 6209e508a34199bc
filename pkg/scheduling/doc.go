/*
Package scheduling provides background task execution primitives.

  - workerpool: fixed worker pool with a bounded queue, used to fan out
    batched fetches
  - refresher: cron-scheduled jobs, used to keep response caches warm

Both shut down gracefully and are safe for concurrent use.
*/
package scheduling
