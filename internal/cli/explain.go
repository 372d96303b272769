package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbc/internal/pipeline"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	File string
}

// ExplainResult is the explain and compile commands' JSON payload.
type ExplainResult struct {
	Input      string            `json:"input"`
	Statements []pipeline.Result `json:"statements"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [sql]",
		Short: "Show the bytecode for SQL",
		Long: `Compile SQL against the catalog and print each statement's bytecode
as an EXPLAIN-style listing (addr|opcode|p1|p2|p3[|p4]).

The catalog comes from --catalog and, read-only, from --db. Tables
created by earlier statements are visible to later ones, but nothing
is persisted.

Examples:
  sqlbc explain --catalog ./schema "INSERT INTO users (email) VALUES ('a@b')"
  sqlbc explain "CREATE TABLE t (a, b); SELECT * FROM t"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read SQL from file")

	return cmd
}

func runExplain(opts *ExplainOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sql, err := readInput(cmd, args, opts.File)
	if err != nil {
		return reportError(formatter, ErrCodeInput, "failed to read SQL", err)
	}

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, ErrCodeStore, "failed to open database", err)
	}
	if st != nil {
		defer st.Close()
	}

	cat, err := opts.openCatalog(ctx, st)
	if err != nil {
		return reportError(formatter, ErrCodeCatalog, "failed to load catalog", err)
	}

	results, err := pipeline.New(cat, pipeline.WithLogger(opts.logger())).Compile(ctx, sql)
	return outputPrograms(formatter, sql, results, err)
}

// outputPrograms writes compiled statements, then the error that stopped
// compilation if any.
func outputPrograms(formatter *OutputFormatter, sql string, results []pipeline.Result, err error) error {
	if formatter.Format == "json" {
		if err != nil {
			return reportCompileError(formatter, err)
		}
		if results == nil {
			results = []pipeline.Result{}
		}
		return formatter.Success(ExplainResult{Input: sql, Statements: results})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Input: %s\n", sql)
	for _, r := range results {
		writeProgram(w, r)
	}
	if err != nil {
		return reportCompileError(formatter, err)
	}
	return nil
}

func writeProgram(w io.Writer, r pipeline.Result) {
	fmt.Fprintf(w, "-- %d: %s\n", r.Index, r.Canonical)
	fmt.Fprint(w, r.Program.Listing())
}
