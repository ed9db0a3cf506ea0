// Package output renders actions, invocation results and history.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output for scripting
package output
