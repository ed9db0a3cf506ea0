package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the session cookies",
	Long: `Remove the cookie jar shared by every replay so the next request starts
a fresh server session. Stored actions are kept.

Examples:
  webauto clear`,
	Args: cobra.NoArgs,
	RunE: clearCommand,
}

func clearCommand(cmd *cobra.Command, args []string) error {
	s, closeSession, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer closeSession()

	if err := s.Clear(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared session in %s\n", s.DataDir())
	return nil
}
