// Package config handles configuration loading and management for webauto.
//
// It provides functionality for:
//   - Loading configuration from .webauto.json or .webauto.yaml files
//   - Default configuration values
//   - WEBAUTO_DATA_DIR, WEBAUTO_EXECUTOR and NO_COLOR overrides
package config
