package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestHandler_TriggerRunsHooksInReverse(t *testing.T) {
	h := NewHandler(time.Second)

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		h.OnShutdown(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	go h.Trigger()
	if err := h.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("hook order = %v, want [3 2 1]", order)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done() should be closed after Wait returns")
	}
}

func TestHandler_HookErrorsAreJoined(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("a")
	errB := errors.New("b")

	ran := false
	h.OnShutdown(func(context.Context) error { ran = true; return nil })
	h.OnShutdown(func(context.Context) error { return errA })
	h.OnShutdown(func(context.Context) error { return errB })

	h.Trigger()
	err := h.Wait()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() = %v, want both hook errors", err)
	}
	if !ran {
		t.Error("a failing hook must not stop the remaining hooks")
	}
}

func TestHandler_HookContextHasDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)

	h.OnShutdown(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("hook context has no deadline")
		}
		<-ctx.Done()
		return ctx.Err()
	})

	h.Trigger()
	if err := h.Wait(); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want DeadlineExceeded", err)
	}
}

func TestHandler_TriggerTwice(t *testing.T) {
	h := NewHandler(time.Second)
	h.Trigger()
	h.Trigger()
	if err := h.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second)

	called := make(chan struct{})
	h.OnShutdown(func(context.Context) error {
		close(called)
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()

	// Give Wait time to install the signal handler.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after SIGTERM")
	}

	select {
	case <-called:
	default:
		t.Error("hook not called")
	}
}
