package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/panasenco/WebAutomation/packages/curlcmd"
	"github.com/panasenco/WebAutomation/packages/history"
	"github.com/panasenco/WebAutomation/packages/registry"
	"github.com/panasenco/WebAutomation/packages/session"
)

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if maxLen > 0 && len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// FormatTemplates prints one line per template, durable ones marked with *.
func (f *ConsoleFormatter) FormatTemplates(templates []registry.Template) {
	if len(templates) == 0 {
		fmt.Fprintf(f.writer, "No actions defined\n")
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, t := range templates {
		marker := " "
		if t.Origin == registry.Durable {
			marker = yellow("*")
		}
		if f.verbose {
			fmt.Fprintf(f.writer, "%s %s\n    %s\n", marker, bold(t.Name), t.Command)
			continue
		}
		fmt.Fprintf(f.writer, "%s %s\n", marker, t.Name)
	}
}

// FormatRequest prints an action's sanitized command and, when it parses,
// the request it describes.
func (f *ConsoleFormatter) FormatRequest(name, command string, req *curlcmd.Command) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(f.writer, "%s\n  %s\n", bold(name), command)
	if req == nil {
		return
	}

	fmt.Fprintf(f.writer, "\n  %s %s\n", cyan(req.Method), req.URL)
	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(f.writer, "  %s: %s\n", k, req.Headers[k])
	}
	if req.Body != "" {
		fmt.Fprintf(f.writer, "\n  %s\n", req.Body)
	}
}

// FormatResult prints an invocation outcome. Dry runs print the composed
// command; executed requests print the body, preceded by the header lines
// when verbose.
func (f *ConsoleFormatter) FormatResult(result *session.Result) {
	if result.DryRun || result.Response == nil {
		fmt.Fprintln(f.writer, result.Command)
		return
	}

	resp := result.Response
	if f.verbose {
		cyan := color.New(color.FgCyan).SprintFunc()
		status := fmt.Sprintf("%s %s", resp.Proto, resp.Status)
		fmt.Fprintf(f.writer, "%s %s\n", f.statusColor(resp.StatusCode)(status), cyan(fmt.Sprintf("(%dms)", resp.DurationMs())))
		if len(resp.HeaderLines) > 1 {
			for _, line := range resp.HeaderLines[1:] {
				fmt.Fprintln(f.writer, line)
			}
		}
		fmt.Fprintln(f.writer)
	}
	for _, line := range resp.BodyLines {
		fmt.Fprintln(f.writer, line)
	}
}

// FormatQuery prints a value extracted from a response body.
func (f *ConsoleFormatter) FormatQuery(path string, value any, found bool) {
	if !found {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Fprintf(f.writer, "%s %s\n", red("no match for"), path)
		return
	}
	fmt.Fprintln(f.writer, formatValue(value, 0))
}

// FormatBatch prints a one-line summary per batch row plus totals.
func (f *ConsoleFormatter) FormatBatch(results []session.BatchResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	passed, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(f.writer, "  %s row %d %s\n", red("✗"), r.Row+1, red(fmt.Sprintf("(%v)", r.Err)))
			continue
		}
		passed++
		status := "dry run"
		if resp := r.Result.Response; resp != nil {
			status = fmt.Sprintf("%d %s", resp.StatusCode, cyan(fmt.Sprintf("(%dms)", resp.DurationMs())))
		}
		fmt.Fprintf(f.writer, "  %s row %d %s\n", green("✓"), r.Row+1, status)
	}

	fmt.Fprintf(f.writer, "\nRows: ")
	if passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d succeeded", passed)))
	}
	if failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", len(results))
}

// FormatHistory prints recorded invocations, newest first.
func (f *ConsoleFormatter) FormatHistory(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintf(f.writer, "No invocations recorded\n")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	for _, e := range entries {
		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		if e.Failed() {
			fmt.Fprintf(f.writer, "%s  %s %s %s\n", ts, red("✗"), e.Action, red(formatValue(e.Error, 80)))
			continue
		}
		fmt.Fprintf(f.writer, "%s  %s %s %d %s\n", ts, green("✓"), e.Action, e.StatusCode, cyan(fmt.Sprintf("(%dms)", e.Duration.Milliseconds())))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("webauto"), version)
}

func (f *ConsoleFormatter) statusColor(code int) func(a ...any) string {
	switch {
	case code >= 200 && code < 300:
		return color.New(color.FgGreen).SprintFunc()
	case code >= 300 && code < 400:
		return color.New(color.FgYellow).SprintFunc()
	default:
		return color.New(color.FgRed).SprintFunc()
	}
}
