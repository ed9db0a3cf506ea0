package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [name|-] [command]",
	Short: "Store a captured curl command as a named action",
	Long: `Store a request command copied from a browser ("Copy as cURL") in the
durable action store. The command is read from stdin when not given as an
argument, so multi-line pastes work. Without a name (or with "-") one is
derived from the request method and path.

Examples:
  webauto add login 'curl "https://example.com/login" --data-raw "user=x&pass=y"'
  pbpaste | webauto add report
  webauto add - < request.txt`,
	Args: cobra.MaximumNArgs(2),
	RunE: addCommand,
}

func addCommand(cmd *cobra.Command, args []string) error {
	var name, command string
	if len(args) > 0 && args[0] != "-" {
		name = args[0]
	}

	if len(args) == 2 {
		command = args[1]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("cannot read command from stdin: %w", err)
		}
		command = string(data)
	}
	if strings.TrimSpace(command) == "" {
		return &usageError{errors.New("no command given")}
	}

	s, closeSession, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer closeSession()

	stored, err := s.Register(name, command, true)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", stored, s.ActionsPath())
	return nil
}
