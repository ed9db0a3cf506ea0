// Package session ties the template registry, credential cache, substitution
// and transport together into one replay session.
//
// A Session owns all mutable state (ephemeral templates, cached credentials)
// for one data directory. Create it once, use it from a single goroutine and
// tear it down with Close.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/panasenco/WebAutomation/packages/curlcmd"
	"github.com/panasenco/WebAutomation/packages/history"
	"github.com/panasenco/WebAutomation/packages/registry"
	"github.com/panasenco/WebAutomation/packages/response"
	"github.com/panasenco/WebAutomation/packages/sanitize"
	"github.com/panasenco/WebAutomation/packages/secrets"
	"github.com/panasenco/WebAutomation/packages/substitute"
	"github.com/panasenco/WebAutomation/packages/transport"
	"go.uber.org/zap"
)

// DefaultActionsFile is the durable store file name inside the data directory.
const DefaultActionsFile = "actions.txt"

// HistoryRecorder receives one entry per executed invocation.
type HistoryRecorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Options control a single invocation.
type Options struct {
	// UseAltAuth sends NTLM credentials instead of relying on session cookies.
	UseAltAuth bool
	// DryRun returns the composed command without executing it.
	DryRun bool
	// Site keys the credential cache for alt auth; defaults to the URL host.
	Site string
}

// Result is the outcome of Invoke. Response is nil for dry runs.
type Result struct {
	Action   string
	Command  string
	DryRun   bool
	Response *response.Response
}

// Session is the per-data-directory replay context.
type Session struct {
	dataDir     string
	actionsFile string
	registry    *registry.Registry
	secrets     *secrets.Store
	prompter    secrets.Prompter
	executor    transport.Executor
	history     HistoryRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// Option is a functional option for Session.
type Option func(*Session)

// WithExecutor sets the transport used to run commands.
func WithExecutor(e transport.Executor) Option {
	return func(s *Session) {
		s.executor = e
	}
}

// WithPrompter sets the collaborator that asks for credentials.
func WithPrompter(p secrets.Prompter) Option {
	return func(s *Session) {
		s.prompter = p
	}
}

// WithHistory records every executed invocation.
func WithHistory(h HistoryRecorder) Option {
	return func(s *Session) {
		s.history = h
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithActionsFile overrides the durable store file name.
func WithActionsFile(name string) Option {
	return func(s *Session) {
		s.actionsFile = name
	}
}

// New creates a session rooted at dataDir.
func New(dataDir string, opts ...Option) *Session {
	s := &Session{
		dataDir:     dataDir,
		actionsFile: DefaultActionsFile,
		executor:    transport.NewShellExecutor(),
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	actionsPath := s.actionsFile
	if !filepath.IsAbs(actionsPath) {
		actionsPath = filepath.Join(dataDir, actionsPath)
	}

	s.secrets = secrets.NewStore(s.prompter)
	s.registry = registry.New(actionsPath,
		registry.WithSanitizer(sanitize.New(dataDir).Apply),
		registry.WithCookieJar(s.CookieJar()),
	)
	return s
}

// DataDir returns the session's data directory.
func (s *Session) DataDir() string {
	return s.dataDir
}

// ActionsPath returns the durable store file path.
func (s *Session) ActionsPath() string {
	return s.registry.DurablePath()
}

// CookieJar returns the cookie jar path shared by every replay.
func (s *Session) CookieJar() string {
	return sanitize.CookieJarPath(s.dataDir)
}

// Register stores a captured command under name. Multi-line pastes are joined
// first. An empty name is derived from the request method and path. The
// stored name is returned.
func (s *Session) Register(name, command string, durable bool) (string, error) {
	command = curlcmd.Normalize(command)

	if strings.TrimSpace(name) == "" {
		parsed, err := curlcmd.Parse(command)
		if err != nil {
			return "", fmt.Errorf("cannot derive an action name: %w", err)
		}
		name = curlcmd.DefaultName(parsed)
	}

	if err := s.registry.Register(name, command, durable); err != nil {
		return "", err
	}

	s.logger.Info("Registered action",
		zap.String("name", name),
		zap.Bool("durable", durable))
	return strings.TrimSpace(name), nil
}

// Lookup returns the sanitized commands of every template matching pattern.
func (s *Session) Lookup(pattern string) (map[string]string, error) {
	return s.registry.Lookup(pattern)
}

// Templates returns the merged template view sorted by name.
func (s *Session) Templates() ([]registry.Template, error) {
	return s.registry.Entries()
}

// Resolve picks the single template an invocation of pattern refers to.
// An exact name wins; otherwise the pattern must match exactly one template.
func (s *Session) Resolve(pattern string) (name, command string, err error) {
	matches, err := s.registry.Lookup(pattern)
	if err != nil {
		return "", "", err
	}

	if cmd, ok := matches[pattern]; ok {
		return pattern, cmd, nil
	}

	switch len(matches) {
	case 0:
		return "", "", &NotFoundError{Pattern: pattern}
	case 1:
		for n, cmd := range matches {
			return n, cmd, nil
		}
	}

	names := make([]string, 0, len(matches))
	for n := range matches {
		names = append(names, n)
	}
	sort.Strings(names)
	return "", "", &AmbiguousError{Pattern: pattern, Matches: names}
}

// Credential returns the cached credential for site, prompting on first use.
func (s *Session) Credential(site string) (*secrets.Credential, error) {
	return s.secrets.GetOrPrompt(site)
}

// Invoke resolves an action, fills in data and either returns the command
// (dry run) or executes it and returns the parsed response.
func (s *Session) Invoke(ctx context.Context, action string, data map[string]string, opts Options) (*Result, error) {
	name, template, err := s.Resolve(action)
	if err != nil {
		return nil, err
	}

	filled := make(map[string]string, len(data)+2)
	for k, v := range data {
		filled[k] = v
	}

	if opts.UseAltAuth {
		if err := s.fillCredentials(name, template, filled, opts.Site); err != nil {
			return nil, err
		}
	}

	command := substitute.Fill(template, filled, opts.UseAltAuth)
	if unused := substitute.Unused(template, data); len(unused) > 0 {
		s.logger.Debug("Ignoring data keys absent from request body",
			zap.String("action", name),
			zap.Strings("keys", unused))
	}

	result := &Result{Action: name, Command: command, DryRun: opts.DryRun}
	if opts.DryRun {
		s.logger.Debug("Dry run", zap.String("action", name))
		return result, nil
	}

	s.logger.Info("Executing action", zap.String("action", name), zap.Bool("altAuth", opts.UseAltAuth))
	start := s.now()
	lines, err := s.executor.Execute(ctx, command)
	duration := s.now().Sub(start)
	if err != nil {
		s.record(ctx, name, 0, duration, err)
		return nil, fmt.Errorf("invoking %s: %w", name, err)
	}

	resp, err := response.FromLines(lines)
	if err != nil {
		s.record(ctx, name, 0, duration, err)
		return nil, fmt.Errorf("invoking %s: %w", name, err)
	}
	resp.Duration = duration
	result.Response = resp

	s.record(ctx, name, resp.StatusCode, duration, nil)
	s.logger.Info("Action completed",
		zap.String("action", name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration))
	return result, nil
}

// fillCredentials supplies username/password from the credential cache when
// the caller did not pass both.
func (s *Session) fillCredentials(name, template string, data map[string]string, site string) error {
	if data[substitute.UsernameKey] != "" && data[substitute.PasswordKey] != "" {
		return nil
	}

	if site == "" {
		parsed, err := curlcmd.Parse(template)
		if err != nil {
			return fmt.Errorf("cannot determine credential site for %s: %w", name, err)
		}
		site = parsed.Host()
	}

	cred, err := s.secrets.GetOrPrompt(site)
	if err != nil {
		return err
	}
	data[substitute.UsernameKey] = cred.Username
	data[substitute.PasswordKey] = cred.Password()
	return nil
}

func (s *Session) record(ctx context.Context, action string, status int, duration time.Duration, err error) {
	if s.history == nil {
		return
	}
	entry := history.Entry{
		Action:     action,
		StatusCode: status,
		Duration:   duration,
		Timestamp:  s.now(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if herr := s.history.Record(ctx, entry); herr != nil {
		s.logger.Warn("Failed to record history", zap.Error(herr))
	}
}

// Clear wipes ephemeral templates, the cookie jar and cached credentials.
// Durable templates are kept.
func (s *Session) Clear() error {
	s.secrets.Clear()
	if err := s.registry.Clear(); err != nil {
		return err
	}
	s.logger.Info("Session cleared", zap.String("dataDir", s.dataDir))
	return nil
}

// Close releases in-memory secrets. The cookie jar and templates are kept.
func (s *Session) Close() error {
	s.secrets.Clear()
	return nil
}
