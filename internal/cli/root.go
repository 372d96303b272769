// Package cli implements the sqlbc command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/sqlbc/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	CatalogDir string // CUE catalog directory
	Database   string // SQLite session database

	// TraceIDs generates trace IDs for JSON responses.
	// If nil, defaults to UUIDv7TraceIDs.
	TraceIDs TraceIDGenerator

	// Logger receives diagnostics. The root command sets it from the
	// verbose flag and config; nil discards.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute runs the root command and returns the process exit code.
// Commands report their own failures; argument and flag errors from
// cobra are printed here and treated as command errors.
func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	var exitErr *ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return ExitCommandError
	}
	return GetExitCode(err)
}

// NewRootCommand creates the root command for the sqlbc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sqlbc",
		Short: "SQL to bytecode compiler",
		Long: `Compile SELECT, INSERT and CREATE TABLE statements to a typed IR,
canonical SQL text and register-machine bytecode.

Settings may also come from a YAML config file (default .sqlbc.yaml);
flags override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.setup(cmd); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	cmd.PersistentFlags().StringVar(&opts.CatalogDir, "catalog", "", "directory of CUE table definitions")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite session database")

	// Add subcommands
	cmd.AddCommand(NewPrintCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup merges the config file into unset flags, validates the result and
// installs the logger.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.applyConfig(cfg, cmd.Flags().Changed)

	// Validate format flag
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	level, err := (&config.Config{Verbose: o.Verbose, LogLevel: cfg.LogLevel}).Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	o.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
	return nil
}

// applyConfig copies file values into options whose flag was not given.
func (o *RootOptions) applyConfig(cfg *config.Config, changed func(string) bool) {
	if !changed("format") && cfg.Format != "" {
		o.Format = cfg.Format
	}
	if !changed("verbose") && cfg.Verbose {
		o.Verbose = true
	}
	if !changed("catalog") && cfg.CatalogDir != "" {
		o.CatalogDir = cfg.CatalogDir
	}
	if !changed("db") && cfg.Database != "" {
		o.Database = cfg.Database
	}
}

// logger returns the configured logger or a discarding one.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// formatter creates an OutputFormatter for cmd. JSON responses get a
// fresh trace ID.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	f := &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
	if o.Format == "json" {
		gen := o.TraceIDs
		if gen == nil {
			gen = UUIDv7TraceIDs{}
		}
		f.TraceID = gen.Generate()
	}
	return f
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
