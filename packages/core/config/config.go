package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the webauto configuration
type Config struct {
	DataDir     string `json:"dataDir,omitempty" yaml:"dataDir,omitempty"`
	ActionsFile string `json:"actionsFile,omitempty" yaml:"actionsFile,omitempty"`
	Executor    string `json:"executor,omitempty" yaml:"executor,omitempty"` // shell or virtual
	Shell       string `json:"shell,omitempty" yaml:"shell,omitempty"`
	Timeout     int    `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds, 0 = none
	History     *bool  `json:"history,omitempty" yaml:"history,omitempty"`
	Verbose     *bool  `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor     *bool  `json:"noColor,omitempty" yaml:"noColor,omitempty"`
}

const (
	ExecutorShell   = "shell"
	ExecutorVirtual = "virtual"
)

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetHistory returns whether invocations are recorded, defaulting to true
func (c *Config) GetHistory() bool {
	return getBool(c.History, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration returns Timeout as a duration
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ActionsPath returns the durable action store path
func (c *Config) ActionsPath() string {
	if filepath.IsAbs(c.ActionsFile) {
		return c.ActionsFile
	}
	return filepath.Join(c.DataDir, c.ActionsFile)
}

// Validate checks the configuration for unusable values
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("dataDir must be set")
	}
	if c.ActionsFile == "" {
		return fmt.Errorf("actionsFile must be set")
	}
	switch c.Executor {
	case ExecutorShell, ExecutorVirtual:
	default:
		return fmt.Errorf("unknown executor %q (want %s or %s)", c.Executor, ExecutorShell, ExecutorVirtual)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	".webauto.json",
	"webauto.json",
	".webauto.yaml",
	".webauto.yml",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	var cfg *Config
	var err error
	if path != "" {
		cfg, err = loadConfigFromFile(path)
	} else {
		cfg, err = FindAndLoadConfig(".")
	}
	if err != nil {
		return nil, err
	}
	return cfg.Merge(FromEnv()), nil
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	loaded := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, loaded)
	default:
		err = json.Unmarshal(data, loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return DefaultConfig().Merge(loaded), nil
}

// FromEnv returns the settings given by environment variables
func FromEnv() *Config {
	c := &Config{}
	if v := os.Getenv("WEBAUTO_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("WEBAUTO_EXECUTOR"); v != "" {
		c.Executor = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.NoColor = BoolPtr(true)
	}
	return c
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DataDir != "" {
		result.DataDir = other.DataDir
	}
	if other.ActionsFile != "" {
		result.ActionsFile = other.ActionsFile
	}
	if other.Executor != "" {
		result.Executor = other.Executor
	}
	if other.Shell != "" {
		result.Shell = other.Shell
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}

	// Boolean flags - only override if explicitly set in other config
	if other.History != nil {
		result.History = other.History
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	return &result
}

// SaveConfig saves the configuration to a file, as YAML for .yaml/.yml paths
func (c *Config) SaveConfig(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
