package cmd

import (
	"errors"

	"github.com/panasenco/WebAutomation/packages/registry"
	"github.com/panasenco/WebAutomation/packages/secrets"
	"github.com/panasenco/WebAutomation/packages/session"
	"github.com/panasenco/WebAutomation/packages/transport"
)

// Exit codes for webauto CLI
const (
	// ExitSuccess indicates the command completed
	ExitSuccess = 0

	// ExitRequestFailure indicates a malformed response, a failed schema
	// check or a failed batch row
	ExitRequestFailure = 1

	// ExitNotFound indicates no action, or more than one, matched
	ExitNotFound = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitTransportError indicates the request command could not run
	ExitTransportError = 4

	// ExitConflict indicates an action name is already defined
	ExitConflict = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

type configError struct{ err error }

func (e *configError) Error() string { return "config: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// exitCodeFor maps an error returned by a command to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		cfgErr      *configError
		useErr      *usageError
		notFound    *session.NotFoundError
		ambiguous   *session.AmbiguousError
		conflict    *registry.ConflictError
		invalidName *registry.InvalidNameError
		transErr    *transport.Error
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &useErr), errors.As(err, &invalidName):
		return ExitUsageError
	case errors.As(err, &notFound), errors.As(err, &ambiguous):
		return ExitNotFound
	case errors.As(err, &conflict):
		return ExitConflict
	case errors.As(err, &transErr), errors.Is(err, secrets.ErrPromptCancelled):
		return ExitTransportError
	}
	return ExitRequestFailure
}
