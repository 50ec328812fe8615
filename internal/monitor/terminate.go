package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cptspacemanspiff/device-monitor/internal/remote"
)

// Task tracks one termination request. Callers are free to ignore it.
type Task struct {
	ID    string
	PID   int
	Force bool

	done chan struct{}
	err  error
}

// Done is closed once the kill command has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the outcome after Done is closed.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Terminator sends kill commands to the device without blocking the caller.
type Terminator struct {
	ch      remote.Channel
	timeout time.Duration
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewTerminator returns a Terminator using ch. Each request is bounded by
// timeout.
func NewTerminator(ch remote.Channel, timeout time.Duration, logger *slog.Logger) *Terminator {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Terminator{ch: ch, timeout: timeout, log: logger}
}

// Terminate asks the device to end pid, with SIGKILL when force is set, and
// returns immediately. Failures are logged.
func (t *Terminator) Terminate(pid int, force bool) *Task {
	task := &Task{
		ID:    uuid.NewString(),
		PID:   pid,
		Force: force,
		done:  make(chan struct{}),
	}
	if pid <= 0 {
		task.err = fmt.Errorf("invalid pid %d", pid)
		close(task.done)
		t.log.Warn("terminate rejected", "task", task.ID, "pid", pid, "err", task.err)
		return task
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer close(task.done)

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		t.log.Info("terminate", "task", task.ID, "pid", pid, "force", force)
		if _, err := remote.Run(ctx, t.ch, killArgs(pid, force)...); err != nil {
			task.err = err
			t.log.Warn("terminate failed", "task", task.ID, "pid", pid, "force", force, "err", err)
			return
		}
		t.log.Info("terminate sent", "task", task.ID, "pid", pid)
	}()
	return task
}

// Wait blocks until all outstanding requests have finished or ctx ends.
func (t *Terminator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
