package session

import (
	"fmt"
	"strings"
)

// NotFoundError is returned when no template matches an invocation request.
type NotFoundError struct {
	Pattern string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no action matches %q", e.Pattern)
}

// AmbiguousError is returned when a pattern matches several templates and
// none of them has exactly that name.
type AmbiguousError struct {
	Pattern string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q matches several actions: %s", e.Pattern, strings.Join(e.Matches, ", "))
}
