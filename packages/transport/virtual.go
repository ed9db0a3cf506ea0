package transport

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// VirtualExecutor interprets commands with an embedded POSIX shell, so no
// system shell is required. External programs (curl) are still executed.
type VirtualExecutor struct {
	dir     string
	timeout time.Duration
}

// NewVirtualExecutor creates a VirtualExecutor. WithShell is ignored.
func NewVirtualExecutor(opts ...Option) *VirtualExecutor {
	o := buildOptions(opts)
	return &VirtualExecutor{dir: o.dir, timeout: o.timeout}
}

// Validate reports whether command parses as shell syntax.
func (e *VirtualExecutor) Validate(command string) error {
	if _, err := syntax.NewParser().Parse(strings.NewReader(command), "command"); err != nil {
		return fmt.Errorf("command syntax error: %w", err)
	}
	return nil
}

func (e *VirtualExecutor) Execute(ctx context.Context, command string) ([]string, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	if err != nil {
		return nil, &Error{ExitCode: -1, Err: fmt.Errorf("failed to parse command: %w", err)}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	dir := e.dir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return nil, &Error{ExitCode: -1, Err: fmt.Errorf("failed to create interpreter: %w", err)}
	}

	if err := runner.Run(ctx, prog); err != nil {
		if exitStatus, ok := interp.IsExitStatus(err); ok {
			return nil, &Error{ExitCode: int(exitStatus), Stderr: stderr.String(), Err: err}
		}
		return nil, &Error{ExitCode: -1, Stderr: stderr.String(), Err: err}
	}

	return Lines(stdout.String()), nil
}
