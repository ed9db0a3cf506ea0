// Package transport executes replayable request commands.
//
// The Executor interface is the single place where command strings built from
// captured requests and caller data are run. Swapping the implementation (for
// example for a structured HTTP client) leaves the rest of the system intact.
package transport

import (
	"context"
	"fmt"
	"strings"
)

// Executor runs a fully formed command and returns its standard output as lines.
type Executor interface {
	Execute(ctx context.Context, command string) ([]string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, command string) ([]string, error)

func (f ExecutorFunc) Execute(ctx context.Context, command string) ([]string, error) {
	return f(ctx, command)
}

// Error reports a failed execution. The command itself is kept out of the
// message since it can carry credentials.
type Error struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("request command failed (exit code %d)", e.ExitCode)
	if e.Err != nil && e.ExitCode <= 0 {
		msg = fmt.Sprintf("request command failed: %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Lines splits raw output into lines, dropping carriage returns and the empty
// element produced by a trailing newline.
func Lines(out string) []string {
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	if strings.HasSuffix(out, "\n") {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
