package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbc/internal/pipeline"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	File string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [sql]",
		Short: "Compile SQL into a session database",
		Long: `Compile SQL against the session catalog and record every program.

The session database (--db, required) keeps the tables created so far,
the schema cookie and a log of compiled programs, so a later compile
sees the schema an earlier one created. Temporary tables last for one
invocation only.

Examples:
  sqlbc compile --db ./session.db "CREATE TABLE t (a, b INTEGER)"
  sqlbc compile --db ./session.db --catalog ./schema --file load.sql`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read SQL from file")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Database == "" {
		return reportError(formatter, ErrCodeMissingFlag, "a session database is required (--db)", nil)
	}

	sql, err := readInput(cmd, args, opts.File)
	if err != nil {
		return reportError(formatter, ErrCodeInput, "failed to read SQL", err)
	}

	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.logger().Error("error closing database", "error", closeErr)
		}
	}()

	cat, err := opts.openCatalog(ctx, st)
	if err != nil {
		return reportError(formatter, ErrCodeCatalog, "failed to load catalog", err)
	}

	compiler := pipeline.New(cat,
		pipeline.WithLogger(opts.logger()),
		pipeline.WithRecorder(st),
	)
	results, compileErr := compiler.Compile(ctx, sql)
	if err := outputPrograms(formatter, sql, results, compileErr); err != nil {
		return err
	}

	formatter.VerboseLog("Recorded %d program(s) in %s", len(results), opts.Database)
	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "✓ Compiled %d statement(s) into %s\n", len(results), opts.Database)
	}
	return nil
}
