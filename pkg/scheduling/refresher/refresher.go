package refresher

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of work. The context is canceled when the
// refresher stops.
type Job func(ctx context.Context)

// Refresher schedules jobs with standard 5-field cron expressions.
type Refresher struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New creates a stopped refresher. Call Start after registering jobs.
func New() *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job under the given cron spec (e.g. "*/5 * * * *").
func (r *Refresher) Add(spec string, job Job) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		job(r.ctx)
	})
}

// Remove unregisters a job.
func (r *Refresher) Remove(id cron.EntryID) {
	r.cron.Remove(id)
}

// Start begins running scheduled jobs. Starting twice is a no-op.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.cron.Start()
}

// Stop cancels the job context and waits for running jobs to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.cancel()
		return
	}
	r.started = false
	r.cancel()
	<-r.cron.Stop().Done()
}
