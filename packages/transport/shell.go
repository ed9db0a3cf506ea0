package transport

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// DefaultShell is the interpreter used by ShellExecutor.
const DefaultShell = "sh"

const killWaitDelay = 500 * time.Millisecond

// ShellExecutor runs commands through an external POSIX shell (sh -c).
type ShellExecutor struct {
	shell   string
	dir     string
	timeout time.Duration
}

// Option is a functional option shared by the executors.
type Option func(*options)

type options struct {
	shell   string
	dir     string
	timeout time.Duration
}

// WithShell sets the shell binary used by ShellExecutor.
func WithShell(shell string) Option {
	return func(o *options) {
		o.shell = shell
	}
}

// WithDir sets the working directory commands run in.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithTimeout bounds every execution. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

func buildOptions(opts []Option) options {
	o := options{shell: DefaultShell}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewShellExecutor creates a ShellExecutor.
func NewShellExecutor(opts ...Option) *ShellExecutor {
	o := buildOptions(opts)
	return &ShellExecutor{shell: o.shell, dir: o.dir, timeout: o.timeout}
}

func (e *ShellExecutor) Execute(ctx context.Context, command string) ([]string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.shell, "-c", command)
	cmd.Dir = e.dir
	cmd.Env = os.Environ()
	// Children of the shell may hold stdout open after it is killed.
	cmd.WaitDelay = killWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			exitCode = -1
		}
		return nil, &Error{ExitCode: exitCode, Stderr: stderr.String(), Err: err}
	}

	return Lines(stdout.String()), nil
}
