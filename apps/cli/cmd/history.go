package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/panasenco/WebAutomation/packages/history"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag int
	historyPruneFlag time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history [action]",
	Short: "Show recorded invocations",
	Long: `Show the most recent invocations, newest first, optionally for a single
action. Use --prune to delete entries older than a duration.

Examples:
  webauto history
  webauto history login --limit 5
  webauto history --prune 720h`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().DurationVar(&historyPruneFlag, "prune", 0, "Delete entries older than this duration (e.g. 720h)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	if !cfg.GetHistory() {
		return &configError{fmt.Errorf("history is disabled")}
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return &configError{fmt.Errorf("cannot create data dir: %w", err)}
	}

	store, err := history.OpenDir(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if historyPruneFlag > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-historyPruneFlag))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries\n", n)
		return nil
	}

	action := ""
	if len(args) == 1 {
		action = args[0]
	}
	entries, err := store.Recent(ctx, action, historyLimitFlag)
	if err != nil {
		return err
	}
	newConsole(cmd).FormatHistory(entries)
	return nil
}
