// Package registry stores named request templates ("actions").
//
// Templates come from two places:
//   - a durable action store, a text file holding one "name = command" line
//     per template, re-read on every lookup
//   - an in-memory ephemeral set that lives until the session is cleared
//
// Ephemeral templates shadow durable ones of the same name. Names are unique
// across both: registering a name that already resolves fails with a
// ConflictError. Commands are passed through the configured sanitizer when
// they are read, never when they are written, so sanitizer changes apply to
// every stored template.
package registry
