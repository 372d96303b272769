package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbc/internal/pipeline"
)

// PrintOptions holds flags for the print command.
type PrintOptions struct {
	*RootOptions
	File string
}

// PrintedStatement is one statement in canonical form.
type PrintedStatement struct {
	Index       int    `json:"index"`
	Source      string `json:"source"`
	Canonical   string `json:"canonical"`
	StatementID string `json:"statement_id"`
}

// PrintResult is the print command's JSON payload.
type PrintResult struct {
	Input      string             `json:"input"`
	Statements []PrintedStatement `json:"statements"`
}

// NewPrintCommand creates the print command.
func NewPrintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PrintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "print [sql]",
		Short: "Print SQL in canonical form",
		Long: `Parse SQL, build its IR and print every statement in canonical form.

No catalog is needed: tables and columns are not resolved.
SQL is read from the arguments, --file or stdin.

Examples:
  sqlbc print "select a, b as x from t1, t2"
  sqlbc print --file schema.sql --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read SQL from file")

	return cmd
}

func runPrint(opts *PrintOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sql, err := readInput(cmd, args, opts.File)
	if err != nil {
		return reportError(formatter, ErrCodeInput, "failed to read SQL", err)
	}

	results, err := pipeline.New(nil, pipeline.WithLogger(opts.logger())).Print(sql)

	if formatter.Format == "json" {
		if err != nil {
			return reportCompileError(formatter, err)
		}
		return formatter.Success(PrintResult{Input: sql, Statements: printedStatements(results)})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Input: %s\n", sql)
	for _, r := range results {
		fmt.Fprintln(w, r.Canonical)
	}
	if err != nil {
		return reportCompileError(formatter, err)
	}
	return nil
}

func printedStatements(results []pipeline.Result) []PrintedStatement {
	out := make([]PrintedStatement, len(results))
	for i, r := range results {
		out[i] = PrintedStatement{
			Index:       r.Index,
			Source:      r.Source,
			Canonical:   r.Canonical,
			StatementID: r.StatementID,
		}
	}
	return out
}
