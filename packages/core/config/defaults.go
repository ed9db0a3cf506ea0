package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns <user config dir>/webauto, or .webauto when the
// user config dir is unknown
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "webauto")
	}
	return ".webauto"
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DataDir:     DefaultDataDir(),
		ActionsFile: "actions.txt",
		Executor:    ExecutorShell,
		Shell:       "sh",
		Timeout:     0, // no limit
		History:     BoolPtr(true),
		Verbose:     BoolPtr(false),
		NoColor:     BoolPtr(false),
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DataDir == defaults.DataDir &&
		c.ActionsFile == defaults.ActionsFile &&
		c.Executor == defaults.Executor &&
		c.Shell == defaults.Shell &&
		c.Timeout == defaults.Timeout &&
		c.GetHistory() == defaults.GetHistory() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor()
}
