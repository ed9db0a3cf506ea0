package secrets

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalPrompter reads credentials from the controlling terminal.
// The secret is read without echo when the input is a terminal.
type TerminalPrompter struct {
	in     *os.File
	reader *bufio.Reader
	out    io.Writer
}

// NewTerminalPrompter creates a prompter reading from in and writing prompts to out.
func NewTerminalPrompter(in *os.File, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: in, reader: bufio.NewReader(in), out: out}
}

// WithReader makes the prompter read lines through r, a reader the caller
// already buffers in from, so neither side loses buffered input.
func (p *TerminalPrompter) WithReader(r *bufio.Reader) *TerminalPrompter {
	p.reader = r
	return p
}

func (p *TerminalPrompter) Prompt(site string) (string, []byte, error) {
	reader := p.reader

	fmt.Fprintf(p.out, "Username for %s: ", site)
	username, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil, ErrPromptCancelled
		}
		return "", nil, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return "", nil, ErrPromptCancelled
	}

	fmt.Fprintf(p.out, "Password for %s@%s: ", username, site)
	fd := int(p.in.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrPromptCancelled, err)
		}
		return username, secret, nil
	}

	// Non-interactive input, e.g. piped in tests or scripts.
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", nil, ErrPromptCancelled
	}
	return username, []byte(strings.TrimRight(line, "\r\n")), nil
}
