package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/panasenco/WebAutomation/packages/session"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Summary     JSONSummary      `json:"summary"`
	Invocations []JSONInvocation `json:"invocations"`
	Time        string           `json:"time"`
}

// JSONSummary represents the batch summary
type JSONSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// JSONInvocation represents a single invocation
type JSONInvocation struct {
	Action   string        `json:"action"`
	Row      int           `json:"row"`
	Command  string        `json:"command,omitempty"`
	DryRun   bool          `json:"dryRun,omitempty"`
	Error    string        `json:"error,omitempty"`
	Response *JSONResponse `json:"response,omitempty"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
	Duration   float64           `json:"duration"`
}

// JSONFormatter collects invocation results and writes them as one JSON document
type JSONFormatter struct {
	writer      io.Writer
	invocations []JSONInvocation
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:      os.Stdout,
		invocations: make([]JSONInvocation, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// Add records one invocation outcome. result may be nil when err is set.
func (f *JSONFormatter) Add(action string, row int, result *session.Result, err error) {
	inv := JSONInvocation{Action: action, Row: row}
	if err != nil {
		inv.Error = err.Error()
	}
	if result != nil {
		inv.Command = result.Command
		inv.DryRun = result.DryRun
		if r := result.Response; r != nil {
			inv.Response = &JSONResponse{
				StatusCode: r.StatusCode,
				Status:     r.Status,
				Headers:    r.Headers,
				Body:       r.BodyString(),
				Duration:   float64(r.Duration.Milliseconds()),
			}
		}
	}
	f.invocations = append(f.invocations, inv)
}

// AddBatch records every row of a batch run.
func (f *JSONFormatter) AddBatch(action string, results []session.BatchResult) {
	for _, r := range results {
		f.Add(action, r.Row, r.Result, r.Err)
	}
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	failed := 0
	for _, inv := range f.invocations {
		if inv.Error != "" {
			failed++
		}
	}

	output := JSONOutput{
		Summary: JSONSummary{
			Total:     len(f.invocations),
			Succeeded: len(f.invocations) - failed,
			Failed:    failed,
		},
		Invocations: f.invocations,
		Time:        time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
