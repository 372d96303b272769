package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/pipeline"
	"github.com/roach88/sqlbc/internal/sqlerr"
	"github.com/roach88/sqlbc/internal/store"
)

// Harness runs scenarios. The zero value discards logs.
type Harness struct {
	logger *slog.Logger
}

// New creates a Harness logging to logger. A nil logger discards.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a test scenario with a discarding logger.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(context.Background(), scenario)
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh catalog and a fresh in-memory store.
// Compile errors are outcomes, checked against the expect clause; the
// returned error reports only failures to set the scenario up.
//
// Execution flow:
// 1. Build the starting catalog from catalog_dir and the inline catalog
// 2. Compile the program, recording programs in the store
// 3. Check the expect clause
// 4. Evaluate assertions
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cat, err := buildCatalog(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	st, err := store.Open(":memory:", store.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	compiler := pipeline.New(cat, pipeline.WithLogger(h.logger), pipeline.WithRecorder(st))
	results, compileErr := compiler.Compile(ctx, scenario.SQL)

	result := NewResult()
	result.Catalog = compiler.Catalog()
	for _, r := range results {
		result.Statements = append(result.Statements, StatementOutcome{
			Index:       r.Index,
			Source:      r.Source,
			Statement:   r.Statement,
			StatementID: r.StatementID,
			Canonical:   r.Canonical,
			Listing:     r.Program.Listing(),
			Opcodes:     r.Program.Opcodes(),
			ProgramID:   r.ProgramID,
		})
	}
	if compileErr != nil {
		failure, err := describeFailure(compileErr)
		if err != nil {
			return nil, err
		}
		result.Failure = failure
	}

	programs, err := st.Programs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read program log: %w", err)
	}
	result.Programs = len(programs)

	checkExpect(result, scenario.Expect)
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"statements", len(result.Statements),
		"pass", result.Pass,
	)
	return result, nil
}

// buildCatalog loads catalog_dir, then adds the inline tables.
func buildCatalog(s *Scenario) (*catalog.Memory, error) {
	cat := catalog.NewMemory()
	if s.CatalogDir != "" {
		loaded, err := catalog.LoadCUE(s.CatalogDir)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	if s.Catalog == nil {
		return cat, nil
	}
	for _, spec := range s.Catalog.Tables {
		if err := cat.AddTable(spec.Table()); err != nil {
			return nil, fmt.Errorf("table %s: %w", spec.Name, err)
		}
	}
	if s.Catalog.Cookie != 0 {
		cat.SetSchemaCookie(s.Catalog.Cookie)
	}
	return cat, nil
}

// describeFailure converts a compile error to an outcome. Errors outside
// the compiler's taxonomy are infrastructure failures.
func describeFailure(err error) (*FailureOutcome, error) {
	var e *sqlerr.Error
	if !errors.As(err, &e) {
		return nil, fmt.Errorf("compile: %w", err)
	}
	failure := &FailureOutcome{
		Kind:    string(e.Kind),
		Phase:   string(e.Phase),
		Message: e.Message,
	}
	var se *pipeline.StatementError
	if errors.As(err, &se) {
		failure.Statement = se.Index
	}
	return failure, nil
}

// checkExpect compares the run outcome with the expect clause.
func checkExpect(result *Result, expect *ExpectClause) {
	if expect.IsSuccess() {
		if result.Failure != nil {
			result.AddError(fmt.Sprintf("expected Success, got %s at statement %d: %s",
				result.Failure.Kind, result.Failure.Statement, result.Failure.Message))
		}
		return
	}

	if result.Failure == nil {
		result.AddError(fmt.Sprintf("expected %s, got Success", expect.Case))
		return
	}
	if result.Failure.Kind != expect.Case {
		result.AddError(fmt.Sprintf("expected %s, got %s: %s", expect.Case, result.Failure.Kind, result.Failure.Message))
	}
	if result.Failure.Statement != expect.Statement {
		result.AddError(fmt.Sprintf("expected failure at statement %d, got statement %d",
			expect.Statement, result.Failure.Statement))
	}
	if expect.Message != "" && !containsFold(result.Failure.Message, expect.Message) {
		result.AddError(fmt.Sprintf("expected message containing %q, got %q", expect.Message, result.Failure.Message))
	}
}
