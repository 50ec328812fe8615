package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExecChannel runs commands as local processes, optionally behind a fixed
// prefix such as "adb -s SERIAL shell".
type ExecChannel struct {
	prefix []string
}

// NewLocal returns a channel that runs commands on this host.
func NewLocal() *ExecChannel {
	return &ExecChannel{}
}

// NewADB returns a channel that runs commands on the Android device with the
// given serial through the adb binary at adbPath. An empty serial lets adb pick
// the only attached device.
func NewADB(adbPath, serial string) *ExecChannel {
	if adbPath == "" {
		adbPath = "adb"
	}
	prefix := []string{adbPath}
	if serial != "" {
		prefix = append(prefix, "-s", serial)
	}
	return &ExecChannel{prefix: append(prefix, "shell")}
}

func (c *ExecChannel) command(ctx context.Context, args []string) (*exec.Cmd, error) {
	full := append(append([]string{}, c.prefix...), args...)
	if len(full) == 0 {
		return nil, errors.New("empty command")
	}
	return exec.CommandContext(ctx, full[0], full[1:]...), nil
}

// Execute runs args and captures its output. A non-zero exit status is
// reported through Result.Success, not as an error.
func (c *ExecChannel) Execute(ctx context.Context, args []string) (Result, error) {
	cmd, err := c.command(ctx, args)
	if err != nil {
		return Result{}, err
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Result{}, fmt.Errorf("run %s: %w", strings.Join(cmd.Args, " "), err)
	}
	return Result{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}, nil
}

// Establish checks the device is attached. For adb channels this runs
// "adb get-state", which fails unless the device is online.
func (c *ExecChannel) Establish(ctx context.Context) error {
	if len(c.prefix) == 0 {
		_, err := Run(ctx, c, "true")
		return err
	}
	host := c.prefix[:len(c.prefix)-1]
	check := &ExecChannel{prefix: host}
	out, err := Run(ctx, check, "get-state")
	if err != nil {
		return fmt.Errorf("device not available: %w", err)
	}
	if state := strings.TrimSpace(out); state != "device" {
		return fmt.Errorf("device not available: state %q", state)
	}
	return nil
}
