package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/panasenco/WebAutomation/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a webauto config in the current directory",
	Long: `Initialize webauto in the current directory.

This creates:
  - .webauto.yaml   - Configuration file pointing at a project-local data dir
  - .webauto/       - Data directory for actions, cookies and history

Examples:
  webauto init
  webauto init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, ".webauto.yaml")
	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return &usageError{fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile)}
		}
	}

	project := config.DefaultConfig().Merge(&config.Config{DataDir: ".webauto"})
	if err := project.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	dataDir := filepath.Join(cwd, project.DataDir)
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", dataDir)

	fmt.Fprintf(cmd.OutOrStdout(), "\nwebauto project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'webauto add <name>' and paste a request copied as cURL.\n")

	return nil
}
