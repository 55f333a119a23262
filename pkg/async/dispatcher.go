package async

import (
	"context"
	"sync"
	"time"

	"github.com/platinummonkey/teamseats/pkg/observability"
)

// DefaultTaskTimeout bounds a detached task when the dispatcher is built without one.
const DefaultTaskTimeout = 10 * time.Second

// Dispatcher runs fire-and-forget tasks in their own goroutines with:
// - Detachment from the caller's cancellation
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// The caller never observes a task's outcome. Wait exists so shutdown and tests can drain
// outstanding tasks.
type Dispatcher struct {
	logger  *observability.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A zero timeout uses DefaultTaskTimeout.
func NewDispatcher(logger *observability.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Dispatcher{
		logger:  observability.OrNop(logger),
		timeout: timeout,
	}
}

// Go runs fn in the background. fn's context keeps the values of parentCtx but is not
// canceled with it, so the task outlives the request that started it.
//
// Example:
//
//	d.Go(ctx, "invite email", func(ctx context.Context) error {
//	    return mailer.SendEmail(ctx, to, subject, content)
//	})
func (d *Dispatcher) Go(parentCtx context.Context, taskName string, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), d.timeout)
		defer cancel()

		logger := observability.Enrich(ctx, d.logger).WithField("task", taskName)
		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).Warn("background task failed")
		}
	}()
}

// Wait blocks until every dispatched task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for outstanding tasks or until ctx is done.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
