package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbc/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	StatementID string
	Listing     bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List programs recorded in a session database",
		Long: `List the program log of a session database in compile order.

With --statement, show only the latest program compiled for that
statement ID, including its listing.

Examples:
  sqlbc history --db ./session.db
  sqlbc history --db ./session.db --listing
  sqlbc history --db ./session.db --statement 3f2a... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.StatementID, "statement", "", "show the latest program for a statement ID")
	cmd.Flags().BoolVar(&opts.Listing, "listing", false, "include bytecode listings in text output")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Database == "" {
		return reportError(formatter, ErrCodeMissingFlag, "a session database is required (--db)", nil)
	}
	st, err := opts.openStore()
	if err != nil {
		return reportError(formatter, ErrCodeStore, "failed to open database", err)
	}
	defer st.Close()

	var records []store.ProgramRecord
	listing := opts.Listing
	if opts.StatementID != "" {
		rec, ok, err := st.ProgramByStatement(ctx, opts.StatementID)
		if err != nil {
			return reportError(formatter, ErrCodeStore, "failed to query program log", err)
		}
		if !ok {
			return reportError(formatter, ErrCodeNotFound, fmt.Sprintf("no program recorded for statement %s", opts.StatementID), nil)
		}
		records = []store.ProgramRecord{rec}
		listing = true
	} else {
		records, err = st.Programs(ctx)
		if err != nil {
			return reportError(formatter, ErrCodeStore, "failed to query program log", err)
		}
	}

	if formatter.Format == "json" {
		if records == nil {
			records = []store.ProgramRecord{}
		}
		return formatter.Success(records)
	}

	w := formatter.Writer
	if len(records) == 0 {
		fmt.Fprintln(w, "No programs recorded.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(w, "%d  %s  %s\n", rec.Seq, shortID(rec.ID), rec.Canonical)
		if listing {
			fmt.Fprint(w, rec.Listing)
		}
	}
	return nil
}

// shortID abbreviates a content hash for display.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
