package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/panasenco/WebAutomation/packages/core/config"
	"github.com/panasenco/WebAutomation/packages/history"
	"github.com/panasenco/WebAutomation/packages/output"
	"github.com/panasenco/WebAutomation/packages/secrets"
	"github.com/panasenco/WebAutomation/packages/session"
	"github.com/panasenco/WebAutomation/packages/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag  string
	dataDirFlag string
	verboseFlag bool
	noColorFlag bool

	// set by PersistentPreRunE
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "webauto",
	Short: "Replay captured browser requests as named actions.",
	Long: `webauto stores requests copied from a browser ("Copy as cURL") as named
actions and replays them later with session cookies preserved, sensitive
headers stripped and request-body fields substituted at call time.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		output.NewConsoleFormatter(output.WithWriter(os.Stderr), output.WithNoColor(noColorFlag)).FormatError(err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", getEnvString("WEBAUTO_CONFIG", ""), "Path to config file (env: WEBAUTO_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Directory holding actions, cookies and history (env: WEBAUTO_DATA_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output and debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output (env: NO_COLOR)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(validateCmd)

	invokeCmd.ValidArgsFunction = completeActions
	showCmd.ValidArgsFunction = completeActions
}

// completeActions offers stored action names for the first argument.
func completeActions(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := setup(cmd, args); err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	s, closeSession, err := openSession(cfg, nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer closeSession()

	templates, err := s.Templates()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	names := make([]string, 0, len(templates))
	for _, t := range templates {
		if strings.HasPrefix(t.Name, toComplete) {
			names = append(names, t.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// setup loads configuration and builds the logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return &configError{err}
	}

	overrides := &config.Config{DataDir: dataDirFlag}
	if cmd.Flags().Changed("verbose") {
		overrides.Verbose = config.BoolPtr(verboseFlag)
	}
	if cmd.Flags().Changed("no-color") {
		overrides.NoColor = config.BoolPtr(noColorFlag)
	}
	loaded = loaded.Merge(overrides)
	if err := loaded.Validate(); err != nil {
		return &configError{err}
	}
	cfg = loaded
	verboseFlag = cfg.GetVerbose()
	noColorFlag = cfg.GetNoColor()

	logger, err = newLogger(cfg.GetVerbose())
	if err != nil {
		return &configError{fmt.Errorf("failed to create logger: %w", err)}
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

func newConsole(cmd *cobra.Command) *output.ConsoleFormatter {
	return output.NewConsoleFormatter(
		output.WithWriter(cmd.OutOrStdout()),
		output.WithVerbose(cfg.GetVerbose()),
		output.WithNoColor(cfg.GetNoColor()),
	)
}

// newExecutor builds the transport named by the config.
func newExecutor(c *config.Config) transport.Executor {
	opts := []transport.Option{transport.WithTimeout(c.TimeoutDuration())}
	if c.Shell != "" {
		opts = append(opts, transport.WithShell(c.Shell))
	}
	if c.Executor == config.ExecutorVirtual {
		return transport.NewVirtualExecutor(opts...)
	}
	return transport.NewShellExecutor(opts...)
}

// openSession creates the data directory and a session over it. The
// returned close function releases secrets and the history database.
func openSession(c *config.Config, prompter secrets.Prompter) (*session.Session, func(), error) {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return nil, nil, &configError{fmt.Errorf("cannot create data dir: %w", err)}
	}

	opts := []session.Option{
		session.WithExecutor(newExecutor(c)),
		session.WithActionsFile(c.ActionsFile),
		session.WithLogger(logger),
	}
	if prompter != nil {
		opts = append(opts, session.WithPrompter(prompter))
	}

	var store *history.Store
	if c.GetHistory() {
		var err error
		store, err = history.OpenDir(c.DataDir)
		if err != nil {
			logger.Warn("History disabled", zap.Error(err))
		} else {
			opts = append(opts, session.WithHistory(store))
		}
	}

	s := session.New(c.DataDir, opts...)
	closeFn := func() {
		_ = s.Close()
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close history", zap.Error(err))
			}
		}
	}
	return s, closeFn, nil
}
