package async

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool_Basic(t *testing.T) {
	pool := NewWorkerPool(context.Background(), nil, 3, "test pool", time.Second)
	var count atomic.Int32

	for i := 0; i < 10; i++ {
		if err := pool.Submit(func(ctx context.Context) error {
			count.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	if errs := pool.Close(); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
	if count.Load() != 10 {
		t.Errorf("Expected 10 tasks executed, got %d", count.Load())
	}
}

func TestWorkerPool_CollectsErrorsAndPanics(t *testing.T) {
	pool := NewWorkerPool(context.Background(), nil, 2, "test pool", time.Second)

	_ = pool.Submit(func(ctx context.Context) error { return errors.New("task failed") })
	_ = pool.Submit(func(ctx context.Context) error { panic("boom") })
	_ = pool.Submit(func(ctx context.Context) error { return nil })

	errs := pool.Close()
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %v", errs)
	}
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewWorkerPool(context.Background(), nil, 1, "test pool", time.Second)
	if err := pool.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if err := pool.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrPoolShutDown) {
		t.Errorf("Expected ErrPoolShutDown, got %v", err)
	}

	// A second shutdown is a no-op.
	if err := pool.Shutdown(time.Second); err != nil {
		t.Errorf("Second shutdown failed: %v", err)
	}
}

func TestWorkerPool_ShutdownTimeout(t *testing.T) {
	pool := NewWorkerPool(context.Background(), nil, 1, "test pool", time.Second)
	release := make(chan struct{})
	defer close(release)

	_ = pool.Submit(func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	if err := pool.Shutdown(10 * time.Millisecond); err == nil {
		t.Error("Expected shutdown timeout error")
	}
}

func TestBatch(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var sum atomic.Int32

	errs := Batch(context.Background(), nil, items, 2, "sum", time.Second, func(ctx context.Context, n int) error {
		sum.Add(int32(n))
		if n%2 == 0 {
			return fmt.Errorf("even item %d", n)
		}
		return nil
	})

	if sum.Load() != 15 {
		t.Errorf("Expected every item processed, sum = %d", sum.Load())
	}
	if len(errs) != 2 {
		t.Errorf("Expected 2 errors, got %v", errs)
	}
}

func TestBatch_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	errs := Batch(ctx, nil, []int{1, 2, 3}, 1, "canceled", time.Second, func(ctx context.Context, n int) error {
		ran.Add(1)
		return nil
	})

	if ran.Load() != 0 {
		t.Errorf("Expected no items to run after cancellation, ran %d", ran.Load())
	}
	if len(errs) == 0 {
		t.Error("Expected cancellation errors")
	}
}
