// Package cmd implements the webauto CLI commands using Cobra.
//
// Available commands:
//   - add: Store a captured curl command as a named action
//   - list: Display stored actions, optionally watching for changes
//   - show: Print an action's sanitized command and its parsed request
//   - invoke: Replay an action with substituted body fields
//   - clear: Drop cookies and cached credentials
//   - history: Show recorded invocations
//   - shell: Interactive session keeping ephemeral actions and credentials
//   - init: Create a project-local config and data directory
//   - import: Add every curl command found in a file
//   - validate: Check stored actions without executing them
//   - version: Show webauto version information
package cmd
