// Package remote runs shell commands on the monitored device.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout is returned when a command does not finish within its deadline.
var ErrTimeout = errors.New("command timed out")

// Result is the captured output of one command.
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Channel executes a command on the device and returns its output.
// Implementations must be safe for concurrent use.
type Channel interface {
	Execute(ctx context.Context, args []string) (Result, error)
}

// CommandError reports a command that ran but exited unsuccessfully.
type CommandError struct {
	Args   []string
	Stderr string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "exit status non-zero"
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Args, " "), msg)
}

// Run executes args on ch and returns stdout. An unsuccessful result becomes a
// *CommandError, and a deadline overrun becomes ErrTimeout.
func Run(ctx context.Context, ch Channel, args ...string) (string, error) {
	res, err := ch.Execute(ctx, args)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s: %w", strings.Join(args, " "), ErrTimeout)
		}
		return "", err
	}
	if !res.Success {
		return res.Stdout, &CommandError{Args: args, Stderr: res.Stderr}
	}
	return res.Stdout, nil
}

// Establisher is implemented by channels that can verify the device is
// reachable before sampling begins.
type Establisher interface {
	Establish(ctx context.Context) error
}

// Establish verifies ch is usable. Channels without an explicit check are
// probed with a trivial command.
func Establish(ctx context.Context, ch Channel) error {
	if e, ok := ch.(Establisher); ok {
		return e.Establish(ctx)
	}
	_, err := Run(ctx, ch, "true")
	return err
}
