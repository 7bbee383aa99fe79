package lifecycle

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

func TestManager_ContextCancelRunsShutdown(t *testing.T) {
	mgr := NewManager(nil)
	steps := make([]string, 0, 4)
	var mu sync.Mutex
	appendStep := func(v string) {
		mu.Lock()
		steps = append(steps, v)
		mu.Unlock()
	}

	mgr.AddRun("ws-listener", func(ctx context.Context) error {
		<-ctx.Done()
		appendStep("listener-stopped")
		return nil
	})
	mgr.AddShutdown("close-store", func(context.Context) error {
		appendStep("store-closed")
		return nil
	})

	parent, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mgr.StartAndWait(parent)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("StartAndWait should not fail: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(steps, "listener-stopped") {
		t.Fatalf("missing run stop marker: %#v", steps)
	}
	if !slices.Contains(steps, "store-closed") {
		t.Fatalf("missing shutdown marker: %#v", steps)
	}
}

func TestManager_RunErrorStopsSiblingsAndTriggersShutdown(t *testing.T) {
	mgr := NewManager(nil)
	runErr := errors.New("listen tcp: address in use")
	shutdownCalled := 0
	siblingStopped := make(chan struct{})

	mgr.AddRun("ws-listener", func(context.Context) error {
		return runErr
	})
	mgr.AddRun("sweeper", func(ctx context.Context) error {
		<-ctx.Done()
		close(siblingStopped)
		return nil
	})
	mgr.AddShutdown("close-store", func(context.Context) error {
		shutdownCalled++
		return nil
	})

	err := mgr.StartAndWait(context.Background())
	if !errors.Is(err, runErr) {
		t.Fatalf("expected run error, got %v", err)
	}
	select {
	case <-siblingStopped:
	default:
		t.Fatal("sibling run job was not cancelled")
	}
	if shutdownCalled != 1 {
		t.Fatalf("expected shutdown called once, got %d", shutdownCalled)
	}
}

func TestManager_ShutdownErrorsJoined(t *testing.T) {
	mgr := NewManager(nil)
	closeErr := errors.New("close failed")
	mgr.AddShutdown("flaky", func(context.Context) error { return closeErr })
	mgr.AddShutdown("fine", func(context.Context) error { return nil })

	if err := mgr.StartAndWait(context.Background()); !errors.Is(err, closeErr) {
		t.Fatalf("expected shutdown error surfaced, got %v", err)
	}
}
