// Package refresher runs background jobs on cron schedules. It is used to
// keep response caches warm by periodically re-issuing requests.
package refresher
