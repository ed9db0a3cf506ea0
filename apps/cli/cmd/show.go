package cmd

import (
	"github.com/panasenco/WebAutomation/packages/curlcmd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var showCmd = &cobra.Command{
	Use:   "show <action>",
	Short: "Show an action's sanitized command and request",
	Long: `Print the command an action replays, after sanitizing, along with the
method, URL, headers and body parsed from it.

Examples:
  webauto show login`,
	Args: cobra.ExactArgs(1),
	RunE: showCommand,
}

func showCommand(cmd *cobra.Command, args []string) error {
	s, closeSession, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer closeSession()

	name, command, err := s.Resolve(args[0])
	if err != nil {
		return err
	}

	req, err := curlcmd.Parse(command)
	if err != nil {
		logger.Debug("Command is not a parsable curl invocation", zap.String("action", name), zap.Error(err))
		req = nil
	}
	newConsole(cmd).FormatRequest(name, command, req)
	return nil
}
