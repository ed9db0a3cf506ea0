package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/panasenco/WebAutomation/packages/output"
	"github.com/panasenco/WebAutomation/packages/secrets"
	"github.com/panasenco/WebAutomation/packages/session"
	"github.com/spf13/cobra"
)

var (
	invokeDryRunFlag          bool
	invokeAltAuthFlag         bool
	invokeSiteFlag            string
	invokeQueryFlag           string
	invokeSchemaFlag          string
	invokeOutputFlag          string
	invokeDataFileFlag        string
	invokeRateFlag            float64
	invokeContinueOnErrorFlag bool
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <action> [key=value...]",
	Short: "Replay an action",
	Long: `Replay a stored action. Each key=value replaces the matching field of the
request body (values are URL-encoded). The action may be a glob pattern as
long as it matches exactly one action.

Examples:
  webauto invoke search q="green tea"
  webauto invoke report --alt-auth
  webauto invoke get_user --query data.email
  webauto invoke create_user --data-file users.csv --rate 2
  webauto invoke login --dry-run user=alice`,
	Args: cobra.MinimumNArgs(1),
	RunE: invokeCommand,
}

func init() {
	invokeCmd.Flags().BoolVar(&invokeDryRunFlag, "dry-run", false, "Print the final command without executing it")
	invokeCmd.Flags().BoolVar(&invokeAltAuthFlag, "alt-auth", false, "Authenticate with NTLM credentials instead of session cookies")
	invokeCmd.Flags().StringVar(&invokeSiteFlag, "site", "", "Credential site for --alt-auth (default: the request host)")
	invokeCmd.Flags().StringVarP(&invokeQueryFlag, "query", "q", "", "Print only the value at this JSON path of the response body")
	invokeCmd.Flags().StringVar(&invokeSchemaFlag, "schema", "", "Validate the JSON response body against this JSON Schema file")
	invokeCmd.Flags().StringVarP(&invokeOutputFlag, "output", "o", getEnvString("WEBAUTO_OUTPUT", "console"), "Output format: console, json (env: WEBAUTO_OUTPUT)")
	invokeCmd.Flags().StringVar(&invokeDataFileFlag, "data-file", "", "CSV file with one invocation per row; the header row names the keys")
	invokeCmd.Flags().Float64Var(&invokeRateFlag, "rate", 0, "Maximum invocations per second with --data-file (0 = unlimited)")
	invokeCmd.Flags().BoolVar(&invokeContinueOnErrorFlag, "continue-on-error", false, "Keep going after a failed row with --data-file")
}

func invokeCommand(cmd *cobra.Command, args []string) error {
	action := args[0]
	data, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}

	switch invokeOutputFlag {
	case "console", "json":
	default:
		return &usageError{fmt.Errorf("unknown output format %q", invokeOutputFlag)}
	}

	var schema []byte
	if invokeSchemaFlag != "" {
		schema, err = os.ReadFile(invokeSchemaFlag)
		if err != nil {
			return &usageError{fmt.Errorf("cannot read schema: %w", err)}
		}
	}

	s, closeSession, err := openSession(cfg, secrets.NewTerminalPrompter(os.Stdin, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer closeSession()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := session.Options{
		UseAltAuth: invokeAltAuthFlag,
		DryRun:     invokeDryRunFlag,
		Site:       invokeSiteFlag,
	}

	if invokeDataFileFlag != "" {
		return invokeBatch(ctx, cmd, s, action, data, opts)
	}

	result, err := s.Invoke(ctx, action, data, opts)
	if err != nil {
		return err
	}

	if invokeOutputFlag == "json" {
		f := output.NewJSONFormatter(output.JSONWithWriter(cmd.OutOrStdout()))
		f.Add(result.Action, 0, result, nil)
		if err := f.Flush(); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	} else {
		console := newConsole(cmd)
		if invokeQueryFlag != "" && result.Response != nil {
			value, found := result.Response.Query(invokeQueryFlag)
			console.FormatQuery(invokeQueryFlag, value, found)
		} else {
			console.FormatResult(result)
		}
	}

	if schema != nil && result.Response != nil {
		if err := result.Response.ValidateSchema(schema); err != nil {
			return fmt.Errorf("%s: %w", result.Action, err)
		}
	}
	return nil
}

func invokeBatch(ctx context.Context, cmd *cobra.Command, s *session.Session, action string, base map[string]string, opts session.Options) error {
	f, err := os.Open(invokeDataFileFlag)
	if err != nil {
		return &usageError{fmt.Errorf("cannot open data file: %w", err)}
	}
	defer f.Close()

	rows, err := readDataRows(f, base)
	if err != nil {
		return &usageError{fmt.Errorf("%s: %w", invokeDataFileFlag, err)}
	}

	results, err := s.InvokeBatch(ctx, action, rows, session.BatchOptions{
		Options:         opts,
		Rate:            invokeRateFlag,
		ContinueOnError: invokeContinueOnErrorFlag,
	})

	if invokeOutputFlag == "json" {
		jf := output.NewJSONFormatter(output.JSONWithWriter(cmd.OutOrStdout()))
		jf.AddBatch(action, results)
		if ferr := jf.Flush(); ferr != nil {
			return fmt.Errorf("error writing output: %w", ferr)
		}
	} else {
		newConsole(cmd).FormatBatch(results)
	}

	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Err != nil {
			return fmt.Errorf("row %d: %w", r.Row+1, r.Err)
		}
	}
	return nil
}

// parseAssignments turns key=value arguments into substitution data.
func parseAssignments(args []string) (map[string]string, error) {
	data := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, &usageError{fmt.Errorf("invalid data %q: expected key=value", arg)}
		}
		data[key] = value
	}
	return data, nil
}

// readDataRows reads CSV rows keyed by the header row. Values from base are
// used for keys a row leaves out.
func readDataRows(r io.Reader, base map[string]string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("data file is empty")
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]string, len(header)+len(base))
		for k, v := range base {
			row[k] = v
		}
		for i, key := range header {
			if key != "" {
				row[key] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
