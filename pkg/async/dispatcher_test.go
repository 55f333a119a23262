package async

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/platinummonkey/teamseats/pkg/observability"
)

type ctxKey struct{}

func TestDispatcher_RunsTask(t *testing.T) {
	d := NewDispatcher(nil, time.Second)
	executed := atomic.Bool{}

	d.Go(context.Background(), "test task", func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})
	d.Wait()

	if !executed.Load() {
		t.Error("Dispatcher did not execute function")
	}
}

func TestDispatcher_DetachedFromCallerCancellation(t *testing.T) {
	d := NewDispatcher(nil, time.Second)

	parent, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-7"))
	var sawErr error
	var sawValue interface{}
	release := make(chan struct{})

	d.Go(parent, "test task", func(ctx context.Context) error {
		<-release
		sawErr = ctx.Err()
		sawValue = ctx.Value(ctxKey{})
		return nil
	})

	cancel()
	close(release)
	d.Wait()

	if sawErr != nil {
		t.Errorf("Expected task context to survive caller cancellation, got %v", sawErr)
	}
	if sawValue != "req-7" {
		t.Errorf("Expected context values to be preserved, got %v", sawValue)
	}
}

func TestDispatcher_Timeout(t *testing.T) {
	d := NewDispatcher(nil, 20*time.Millisecond)
	var taskErr error

	d.Go(context.Background(), "slow task", func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
			return nil
		case <-ctx.Done():
			taskErr = ctx.Err()
			return taskErr
		}
	})
	d.Wait()

	if !errors.Is(taskErr, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", taskErr)
	}
}

func TestDispatcher_ErrorsAndPanicsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(observability.NewLogger(observability.InfoLevel, &buf), time.Second)

	d.Go(context.Background(), "failing task", func(ctx context.Context) error {
		return errors.New("smtp unavailable")
	})
	d.Go(context.Background(), "panicking task", func(ctx context.Context) error {
		panic("boom")
	})
	d.Wait()

	out := buf.String()
	if !strings.Contains(out, "smtp unavailable") {
		t.Errorf("Expected task error to be logged, got %s", out)
	}
	if !strings.Contains(out, "PANIC recovered") {
		t.Errorf("Expected panic to be logged, got %s", out)
	}
}

func TestDispatcher_Shutdown(t *testing.T) {
	d := NewDispatcher(nil, time.Second)
	release := make(chan struct{})

	d.Go(context.Background(), "blocked task", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected shutdown to time out, got %v", err)
	}

	close(release)
	if err := d.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
}

func TestNewDispatcher_DefaultTimeout(t *testing.T) {
	d := NewDispatcher(nil, 0)
	if d.timeout != DefaultTaskTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTaskTimeout, d.timeout)
	}
}
