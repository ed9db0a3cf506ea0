package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panasenco/WebAutomation/packages/output"
	"github.com/panasenco/WebAutomation/packages/registry"
	"github.com/panasenco/WebAutomation/packages/session"
	"github.com/spf13/cobra"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var listWatchFlag bool

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List stored actions",
	Long: `List the actions matching an optional glob pattern. Durable actions are
marked with *. Use --verbose to print each sanitized command.

Examples:
  webauto list
  webauto list 'report_*' -v
  webauto list --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().BoolVarP(&listWatchFlag, "watch", "w", false, "Re-list whenever the action store changes")
}

func listCommand(cmd *cobra.Command, args []string) error {
	pattern := "*"
	if len(args) == 1 {
		pattern = args[0]
	}

	s, closeSession, err := openSession(cfg, nil)
	if err != nil {
		return err
	}
	defer closeSession()

	if err := renderList(newConsole(cmd), s, pattern); err != nil {
		return err
	}
	if !listWatchFlag {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watchList(ctx, cmd, s, pattern)
}

func renderList(console *output.ConsoleFormatter, s *session.Session, pattern string) error {
	templates, err := s.Templates()
	if err != nil {
		return err
	}

	names, err := s.Lookup(pattern)
	if err != nil {
		return err
	}

	var matched []registry.Template
	for _, t := range templates {
		if _, ok := names[t.Name]; ok {
			matched = append(matched, t)
		}
	}

	console.FormatTemplates(matched)
	return nil
}

// watchList re-renders the list after the durable store changes. The
// directory is watched so the store may be created or replaced.
func watchList(ctx context.Context, cmd *cobra.Command, s *session.Session, pattern string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	path := s.ActionsPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s... (press Ctrl+C to stop)\n", path)

	changed := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case <-changed:
			fmt.Fprintf(cmd.OutOrStdout(), "\n")
			if err := renderList(newConsole(cmd), s, pattern); err != nil {
				newConsole(cmd).FormatError(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			newConsole(cmd).FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}
