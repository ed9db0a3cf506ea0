package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/panasenco/WebAutomation/packages/output"
	"github.com/panasenco/WebAutomation/packages/secrets"
	"github.com/panasenco/WebAutomation/packages/session"
	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"
)

const shellHelp = `Commands:
  add <name|-> [command]     add an action for this session (paste on the next lines, end with a blank line)
  add! <name|-> [command]    add an action to the durable store
  list [pattern]             list actions
  invoke <action> [k=v...]   replay an action
  alt <action> [k=v...]      replay an action with NTLM credentials
  dry <action> [k=v...]      print the final command only
  clear                      forget cookies, credentials and session actions
  help                       show this help
  exit                       leave the shell
`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive session",
	Long: `Start an interactive session. Actions added with "add" and credentials
entered for --alt-auth requests are kept until the shell exits.

Examples:
  webauto shell`,
	Args: cobra.NoArgs,
	RunE: shellCommand,
}

func shellCommand(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	var prompter secrets.Prompter
	if f, ok := in.(*os.File); ok {
		prompter = secrets.NewTerminalPrompter(f, cmd.ErrOrStderr()).WithReader(reader)
	}

	s, closeSession, err := openSession(cfg, prompter)
	if err != nil {
		return err
	}
	defer closeSession()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	r := newREPL(s, reader, cmd.OutOrStdout(), newConsole(cmd))
	fmt.Fprintf(cmd.OutOrStdout(), "webauto %s (data dir %s). Type help for commands.\n", version, s.DataDir())
	return r.run(ctx)
}

// repl reads one command per line and runs it against a single session.
type repl struct {
	session *session.Session
	reader  *bufio.Reader
	out     io.Writer
	console *output.ConsoleFormatter
}

func newREPL(s *session.Session, reader *bufio.Reader, out io.Writer, console *output.ConsoleFormatter) *repl {
	return &repl{session: s, reader: reader, out: out, console: console}
}

func (r *repl) run(ctx context.Context) error {
	for {
		fmt.Fprint(r.out, "webauto> ")
		line, err := r.reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(r.out)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		done, err := r.exec(ctx, strings.TrimSpace(line))
		if err != nil {
			r.console.FormatError(err)
		}
		if done || ctx.Err() != nil {
			return nil
		}
	}
}

// exec runs one line. It reports true when the shell should exit.
func (r *repl) exec(ctx context.Context, line string) (bool, error) {
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}

	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "exit", "quit":
		return true, nil

	case "help":
		fmt.Fprint(r.out, shellHelp)
		return false, nil

	case "add", "add!":
		return false, r.add(rest, verb == "add!")

	case "list":
		pattern := "*"
		if rest != "" {
			pattern = rest
		}
		return false, renderList(r.console, r.session, pattern)

	case "invoke", "alt", "dry":
		return false, r.invoke(ctx, rest, session.Options{
			UseAltAuth: verb == "alt",
			DryRun:     verb == "dry",
		})

	case "clear":
		if err := r.session.Clear(); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Session cleared")
		return false, nil
	}

	return false, &usageError{fmt.Errorf("unknown command %q (type help)", verb)}
}

// add registers the command following the name on the same line, or the
// pasted lines that follow up to a blank line. The command is kept raw so
// its quoting reaches the sanitizer unchanged.
func (r *repl) add(rest string, durable bool) error {
	name, command, _ := strings.Cut(rest, " ")
	if name == "" {
		return &usageError{errors.New("usage: add <name|-> [command]")}
	}
	if name == "-" {
		name = ""
	}

	if strings.TrimSpace(command) == "" {
		var sb strings.Builder
		for {
			line, err := r.reader.ReadString('\n')
			if strings.TrimSpace(line) == "" {
				break
			}
			sb.WriteString(line)
			if err != nil {
				break
			}
		}
		command = sb.String()
	}
	if strings.TrimSpace(command) == "" {
		return &usageError{errors.New("no command given")}
	}

	stored, err := r.session.Register(name, command, durable)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Added %s\n", stored)
	return nil
}

func (r *repl) invoke(ctx context.Context, rest string, opts session.Options) error {
	fields, err := shell.Fields(rest, nil)
	if err != nil {
		return &usageError{err}
	}
	if len(fields) == 0 {
		return &usageError{errors.New("usage: invoke <action> [key=value...]")}
	}

	data, err := parseAssignments(fields[1:])
	if err != nil {
		return err
	}

	result, err := r.session.Invoke(ctx, fields[0], data, opts)
	if err != nil {
		return err
	}
	r.console.FormatResult(result)
	return nil
}
