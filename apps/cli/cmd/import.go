package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/panasenco/WebAutomation/packages/curlcmd"
	"github.com/panasenco/WebAutomation/packages/registry"
	"github.com/spf13/cobra"
)

var (
	importPrefixFlag       string
	importSkipExistingFlag bool
)

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import several captured curl commands at once",
	Long: `Import every curl command in a file, such as the output of the browser's
"Copy all as cURL", into the durable action store. Each action is named
after its request method and path.

Examples:
  webauto import requests.sh
  pbpaste | webauto import - --prefix shop_
  webauto import requests.sh --skip-existing`,
	Args: cobra.ExactArgs(1),
	RunE: importCommand,
}

func init() {
	importCmd.Flags().StringVar(&importPrefixFlag, "prefix", "", "Prefix added to every derived action name")
	importCmd.Flags().BoolVar(&importSkipExistingFlag, "skip-existing", false, "Skip commands whose name is already defined")
}

func importCommand(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return &usageError{fmt.Errorf("cannot open %s: %w", args[0], err)}
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("cannot read commands: %w", err)
	}

	commands := curlcmd.SplitCommands(string(raw))
	if len(commands) == 0 {
		return &usageError{errors.New("no curl commands found")}
	}

	s, closeSession, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer closeSession()

	console := newConsole(cmd)
	imported, skipped := 0, 0
	for i, command := range commands {
		parsed, err := curlcmd.Parse(command)
		if err != nil {
			return fmt.Errorf("command %d: %w", i+1, err)
		}
		name := curlcmd.SanitizeName(importPrefixFlag + curlcmd.DefaultName(parsed))

		stored, err := s.Register(name, command, true)
		var conflict *registry.ConflictError
		if errors.As(err, &conflict) && importSkipExistingFlag {
			skipped++
			console.FormatError(fmt.Errorf("skipped: %w", err))
			continue
		}
		if err != nil {
			return fmt.Errorf("command %d: %w", i+1, err)
		}

		imported++
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", stored)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nImported %d of %d commands into %s", imported, len(commands), s.ActionsPath())
	if skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d skipped)", skipped)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
