package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/panasenco/WebAutomation/packages/curlcmd"
	"github.com/panasenco/WebAutomation/packages/transport"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [pattern]",
	Short: "Check stored actions for syntax errors",
	Long: `Check that every stored action, after sanitizing, is a parsable curl
command and valid shell syntax, without executing anything.

Examples:
  webauto validate
  webauto validate 'report_*'`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	pattern := "*"
	if len(args) == 1 {
		pattern = args[0]
	}

	s, closeSession, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer closeSession()

	matches, err := s.Lookup(pattern)
	if err != nil {
		return err
	}
	templates, err := s.Templates()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	checker := transport.NewVirtualExecutor()

	invalid := 0
	for _, t := range templates {
		command, ok := matches[t.Name]
		if !ok {
			continue
		}
		if err := validateAction(checker, command); err != nil {
			invalid++
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %v\n", red("✗"), t.Name, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("✓"), t.Name)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d actions are invalid", invalid, len(matches))
	}
	return nil
}

func validateAction(checker *transport.VirtualExecutor, command string) error {
	if err := checker.Validate(command); err != nil {
		return err
	}
	_, err := curlcmd.Parse(command)
	return err
}
