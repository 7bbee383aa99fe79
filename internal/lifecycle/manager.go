// Package lifecycle coordinates the long-running loops of one process — the
// websocket listener, the relay sweepers, the agent connection — and tears
// them down together on a signal or a fatal error.
package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"vibebridge/bot/internal/logging"
)

type job struct {
	name string
	run  func(context.Context) error
}

// Manager starts registered run jobs concurrently and runs shutdown jobs
// once all of them have stopped.
type Manager struct {
	logger *slog.Logger

	mu           sync.Mutex
	runJobs      []job
	shutdownJobs []job
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogger(logging.Options{Writer: io.Discard})
	}
	return &Manager{logger: logger}
}

// AddRun registers a long-running loop. The loop should return when its
// context is cancelled; a non-nil error from any loop stops the others.
func (m *Manager) AddRun(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.runJobs = append(m.runJobs, job{name: name, run: fn})
	m.mu.Unlock()
}

// AddShutdown registers cleanup to run after every run job has stopped.
// Shutdown jobs run in registration order.
func (m *Manager) AddShutdown(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.shutdownJobs = append(m.shutdownJobs, job{name: name, run: fn})
	m.mu.Unlock()
}

// StartAndWait runs everything until the parent context is cancelled, one of
// the given signals arrives, or a run job fails. It then waits for all run
// jobs to stop and executes the shutdown jobs.
func (m *Manager) StartAndWait(parent context.Context, sig ...os.Signal) error {
	ctx := parent
	stopSignal := func() {}
	if len(sig) > 0 {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(parent, sig...)
		stopSignal = stop
	}
	defer stopSignal()

	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	m.mu.Lock()
	runJobs := append([]job(nil), m.runJobs...)
	shutdownJobs := append([]job(nil), m.shutdownJobs...)
	m.mu.Unlock()

	errCh := make(chan error, len(runJobs))
	var wg sync.WaitGroup
	for _, j := range runJobs {
		j := j
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.logger.Debug("run job started", "job", j.name)
			if err := j.run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Error("run job failed", "job", j.name, "error", err)
				errCh <- err
				cancelRuns()
			}
			m.logger.Debug("run job stopped", "job", j.name)
		}()
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		cancelRuns()
	case err := <-errCh:
		runErr = err
		cancelRuns()
	case <-doneCh:
	}

	<-doneCh

	var shutdownErr error
	for _, j := range shutdownJobs {
		if err := j.run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("shutdown job failed", "job", j.name, "error", err)
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}
	return errors.Join(runErr, shutdownErr)
}
