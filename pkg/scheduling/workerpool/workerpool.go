package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/vnykmshr/restflow/pkg/common/validation"
)

// Task is a unit of work executed by the pool. The context passed to the
// task is the one given at submission time.
type Task func(ctx context.Context)

type taskWithContext struct {
	task Task
	ctx  context.Context
}

// Pool runs submitted tasks on a fixed number of workers.
type Pool struct {
	workers    int
	taskQueue  chan taskWithContext
	shutdownCh chan struct{}

	mu         sync.RWMutex
	isShutdown bool

	workerWg     sync.WaitGroup
	shutdownOnce sync.Once
}

// New creates a pool with the given number of workers and queue capacity,
// and starts the workers.
func New(workers, queueSize int) (*Pool, error) {
	if err := validation.ValidatePositive("workerpool", "workers", workers); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("workerpool", "queueSize", queueSize); err != nil {
		return nil, err
	}

	p := &Pool{
		workers:    workers,
		taskQueue:  make(chan taskWithContext, queueSize),
		shutdownCh: make(chan struct{}),
	}
	p.workerWg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p, nil
}

// Submit adds a task to the pool for execution with context.Background().
func (p *Pool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext adds a task to the pool for execution with the given
// context. Submission blocks while the queue is full and fails once the
// context is canceled or the pool is shut down.
func (p *Pool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.RLock()
	isShutdown := p.isShutdown
	p.mu.RUnlock()
	if isShutdown {
		return fmt.Errorf("cannot submit task: worker pool has been shut down")
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	default:
	}

	select {
	case p.taskQueue <- taskWithContext{task: task, ctx: ctx}:
		return nil
	case <-p.shutdownCh:
		return fmt.Errorf("cannot submit task: worker pool has been shut down")
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	}
}

// Shutdown initiates a graceful shutdown. Running tasks finish; tasks still
// queued are discarded. The returned channel closes when all workers have
// stopped.
func (p *Pool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.mu.Unlock()

		close(p.shutdownCh)
	})

	done := make(chan struct{})
	go func() {
		p.workerWg.Wait()
		close(done)
	}()
	return done
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return p.workers
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *Pool) QueueSize() int {
	return len(p.taskQueue)
}

// run is the main loop for a worker.
func (p *Pool) run() {
	defer p.workerWg.Done()

	for {
		select {
		case <-p.shutdownCh:
			return
		case twc := <-p.taskQueue:
			p.execute(twc)
		}
	}
}

func (p *Pool) execute(twc taskWithContext) {
	defer func() {
		// A panicking task must not take the worker down.
		if r := recover(); r != nil {
			debug.PrintStack()
		}
	}()

	select {
	case <-twc.ctx.Done():
		return
	default:
	}
	twc.task(twc.ctx)
}
