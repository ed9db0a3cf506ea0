package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/match"
)

// Origin tells where a template is stored.
type Origin int

const (
	// Durable templates live in the action store file and survive restarts.
	Durable Origin = iota
	// Ephemeral templates live in memory until the session is cleared.
	Ephemeral
)

func (o Origin) String() string {
	if o == Ephemeral {
		return "ephemeral"
	}
	return "durable"
}

// Template is a named captured command.
type Template struct {
	Name    string
	Command string
	Origin  Origin
}

// ConflictError is returned when registering a name that already resolves.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a command for %s is already defined", e.Name)
}

// InvalidNameError is returned for names the durable format cannot hold.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid action name %q: %s", e.Name, e.Reason)
}

// Registry merges the durable action store with in-memory templates.
type Registry struct {
	durablePath string
	cookieJar   string
	sanitize    func(string) string
	ephemeral   map[string]string
}

// Option is a functional option for Registry.
type Option func(*Registry)

// WithSanitizer sets the transform applied to every command returned by Lookup.
func WithSanitizer(fn func(string) string) Option {
	return func(r *Registry) {
		r.sanitize = fn
	}
}

// WithCookieJar sets the cookie jar file removed by Clear.
func WithCookieJar(path string) Option {
	return func(r *Registry) {
		r.cookieJar = path
	}
}

// New creates a registry over the durable store at durablePath.
func New(durablePath string, opts ...Option) *Registry {
	r := &Registry{
		durablePath: durablePath,
		sanitize:    func(s string) string { return s },
		ephemeral:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DurablePath returns the path of the action store file.
func (r *Registry) DurablePath() string {
	return r.durablePath
}

// Register adds a template. The name must not already resolve in the merged view.
func (r *Registry) Register(name, command string, durable bool) error {
	name = strings.TrimSpace(name)
	command = strings.TrimSpace(command)

	if err := validateName(name); err != nil {
		return err
	}
	if command == "" {
		return fmt.Errorf("empty command for %s", name)
	}
	if strings.ContainsAny(command, "\r\n") {
		return fmt.Errorf("command for %s spans multiple lines", name)
	}

	existing, err := r.Lookup(name)
	if err != nil {
		return err
	}
	if _, ok := existing[name]; ok {
		return &ConflictError{Name: name}
	}

	if durable {
		return AppendDurable(r.durablePath, name, command)
	}
	r.ephemeral[name] = command
	return nil
}

// Lookup returns every template whose name equals pattern or matches it as a
// glob (* and ?). The durable store is re-read on every call and values are
// sanitized on the way out.
func (r *Registry) Lookup(pattern string) (map[string]string, error) {
	merged, err := r.merged()
	if err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for name, t := range merged {
		if name == pattern || match.Match(name, pattern) {
			result[name] = r.sanitize(t.Command)
		}
	}
	return result, nil
}

// Entries returns the merged view sorted by name, commands sanitized.
func (r *Registry) Entries() ([]Template, error) {
	merged, err := r.merged()
	if err != nil {
		return nil, err
	}

	entries := make([]Template, 0, len(merged))
	for _, t := range merged {
		t.Command = r.sanitize(t.Command)
		entries = append(entries, t)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Clear drops every ephemeral template and deletes the cookie jar.
// The durable store is left alone.
func (r *Registry) Clear() error {
	r.ephemeral = make(map[string]string)

	if r.cookieJar == "" {
		return nil
	}
	if err := os.Remove(r.cookieJar); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cookie jar: %w", err)
	}
	return nil
}

// merged overlays ephemeral templates on the durable ones.
func (r *Registry) merged() (map[string]Template, error) {
	durable, err := LoadDurable(r.durablePath)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]Template, len(durable)+len(r.ephemeral))
	for name, cmd := range durable {
		merged[name] = Template{Name: name, Command: cmd, Origin: Durable}
	}
	for name, cmd := range r.ephemeral {
		merged[name] = Template{Name: name, Command: cmd, Origin: Ephemeral}
	}
	return merged, nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return &InvalidNameError{Name: name, Reason: "name is empty"}
	case strings.Contains(name, "="):
		return &InvalidNameError{Name: name, Reason: "name must not contain '='"}
	case strings.HasPrefix(name, "#"):
		return &InvalidNameError{Name: name, Reason: "name must not start with '#'"}
	case strings.ContainsAny(name, "\r\n"):
		return &InvalidNameError{Name: name, Reason: "name must be a single line"}
	}
	return nil
}
