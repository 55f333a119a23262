package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/platinummonkey/teamseats/pkg/observability"
)

// ErrPoolShutDown is returned by Submit after Shutdown.
var ErrPoolShutDown = errors.New("worker pool shut down")

// WorkerPool manages a pool of workers that process tasks from a channel.
// Provides graceful shutdown and error collection.
type WorkerPool struct {
	logger   *observability.Logger
	taskName string
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	workCh chan func(context.Context) error
	doneCh chan struct{}

	errMu sync.Mutex
	errs  []error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkerPool creates a new worker pool.
//
// Example:
//
//	pool := NewWorkerPool(ctx, logger, 4, "seat audit", 30*time.Second)
//	pool.Submit(func(ctx context.Context) error {
//	    return auditor.audit(ctx, sub)
//	})
//	errs := pool.Close()
func NewWorkerPool(ctx context.Context, logger *observability.Logger, workers int, taskName string, timeout time.Duration) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		logger:   observability.OrNop(logger).WithField("pool", taskName),
		taskName: taskName,
		timeout:  timeout,
		workCh:   make(chan func(context.Context) error, workers*2),
		doneCh:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.worker()
		}()
	}
	go func() {
		wg.Wait()
		close(pool.doneCh)
	}()

	return pool
}

// Submit queues a task. It blocks while the queue is full.
func (p *WorkerPool) Submit(fn func(context.Context) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolShutDown
	}

	select {
	case p.workCh <- fn:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Close stops accepting work, drains the queue and returns every task error.
func (p *WorkerPool) Close() []error {
	p.closeQueue()
	<-p.doneCh
	p.cancel()
	return p.Errors()
}

// Shutdown stops accepting work and waits up to timeout for queued tasks.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	p.closeQueue()

	select {
	case <-p.doneCh:
		p.cancel()
		return nil
	case <-time.After(timeout):
		p.cancel()
		return fmt.Errorf("worker pool shutdown timed out after %v", timeout)
	}
}

// Errors returns the task errors collected so far.
func (p *WorkerPool) Errors() []error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return append([]error(nil), p.errs...)
}

func (p *WorkerPool) closeQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.workCh)
	}
}

func (p *WorkerPool) worker() {
	for fn := range p.workCh {
		if p.ctx.Err() != nil {
			p.record(p.ctx.Err())
			continue
		}
		p.run(fn)
	}
}

func (p *WorkerPool) run(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	defer observability.RecoverPanicWithCallback(p.logger, p.taskName, p.record)

	if err := fn(ctx); err != nil {
		p.record(err)
	}
}

func (p *WorkerPool) record(err error) {
	p.errMu.Lock()
	p.errs = append(p.errs, err)
	p.errMu.Unlock()
}

// Batch processes a slice of items concurrently using a worker pool.
// Returns all errors encountered.
//
// Example:
//
//	errs := Batch(ctx, logger, subs, 4, "seat audit", 10*time.Second, func(ctx context.Context, sub *accounts.Subscription) error {
//	    return audit(ctx, sub)
//	})
func Batch[T any](ctx context.Context, logger *observability.Logger, items []T, workers int, taskName string, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	pool := NewWorkerPool(ctx, logger, workers, taskName, timeout)

	for _, item := range items {
		if err := pool.Submit(func(ctx context.Context) error {
			return fn(ctx, item)
		}); err != nil {
			return append(pool.Close(), err)
		}
	}

	return pool.Close()
}
