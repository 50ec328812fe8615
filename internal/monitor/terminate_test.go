package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cptspacemanspiff/device-monitor/internal/remote"
)

func TestTerminate_IssuesKill(t *testing.T) {
	tests := []struct {
		force bool
		want  string
	}{
		{force: false, want: "kill 4321"},
		{force: true, want: "kill -9 4321"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := newFakeChannel(t)
			term := NewTerminator(f, time.Second, quietLogger())

			task := term.Terminate(4321, tt.force)
			if task.ID == "" {
				t.Fatal("Task.ID is empty")
			}
			if err := task.Err(); err != nil {
				t.Fatalf("Task.Err() = %v", err)
			}
			cmds := f.commands()
			if len(cmds) != 1 || cmds[0] != tt.want {
				t.Fatalf("commands = %v, want [%s]", cmds, tt.want)
			}
		})
	}
}

func TestTerminate_DoesNotBlockCaller(t *testing.T) {
	f := newFakeChannel(t)
	f.setHung("kill 7")
	term := NewTerminator(f, time.Minute, quietLogger())

	start := time.Now()
	task := term.Terminate(7, false)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Terminate() blocked for %v", elapsed)
	}
	select {
	case <-task.Done():
		t.Fatal("task finished while the device was still busy")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := term.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestTerminate_FailureIsReportedOnTask(t *testing.T) {
	f := newFakeChannel(t)
	f.setFail("kill -9 99")
	term := NewTerminator(f, time.Second, quietLogger())

	task := term.Terminate(99, true)
	var cmdErr *remote.CommandError
	if err := task.Err(); !errors.As(err, &cmdErr) {
		t.Fatalf("Task.Err() = %v, want *remote.CommandError", err)
	}
	if err := term.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestTerminate_InvalidPID(t *testing.T) {
	f := newFakeChannel(t)
	term := NewTerminator(f, time.Second, quietLogger())

	if err := term.Terminate(0, false).Err(); err == nil {
		t.Fatal("Terminate(0).Err() = nil, want error")
	}
	if len(f.commands()) != 0 {
		t.Fatalf("commands = %v, want none", f.commands())
	}
}

func TestTerminate_IndependentTasks(t *testing.T) {
	f := newFakeChannel(t)
	term := NewTerminator(f, time.Second, quietLogger())

	a := term.Terminate(1, false)
	b := term.Terminate(2, false)
	if a.ID == b.ID {
		t.Fatalf("task ids collide: %s", a.ID)
	}
	if err := term.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(f.commands()) != 2 {
		t.Fatalf("commands = %v, want 2", f.commands())
	}
}
