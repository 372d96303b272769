package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlbc/internal/builder"
	"github.com/roach88/sqlbc/internal/printer"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Listing  string // Listing of the statement involved, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Listing != "" {
		fmt.Fprintf(&buf, "\nListing:\n")
		for _, line := range strings.SplitAfter(e.Listing, "\n") {
			if line != "" {
				fmt.Fprintf(&buf, "  %s", line)
			}
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCanonical:
			err = assertCanonical(result, assertion)
		case AssertOpcodes:
			err = assertOpcodes(result, assertion)
		case AssertOpcodeCount:
			err = assertOpcodeCount(result, assertion)
		case AssertInstruction:
			err = assertInstruction(result, assertion)
		case AssertIdempotentPrint:
			err = assertIdempotentPrint(result)
		case AssertFinalCatalog:
			err = assertFinalCatalog(result, assertion)
		case AssertProgramLog:
			err = assertProgramLog(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return errors
}

// statement looks up the statement an assertion refers to.
func statement(result *Result, a Assertion) (*StatementOutcome, error) {
	s, ok := result.Statement(a.Statement)
	if !ok {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("statement %d to have compiled", a.Statement),
			Actual:   fmt.Sprintf("%d statements compiled", len(result.Statements)),
		}
	}
	return s, nil
}

// assertCanonical checks the printed text of a statement.
func assertCanonical(result *Result, a Assertion) error {
	s, err := statement(result, a)
	if err != nil {
		return err
	}
	if s.Canonical != a.Text {
		return &AssertionError{
			Type:     AssertCanonical,
			Expected: fmt.Sprintf("%q", a.Text),
			Actual:   fmt.Sprintf("%q", s.Canonical),
		}
	}
	return nil
}

// assertOpcodes checks the exact opcode sequence of a statement.
func assertOpcodes(result *Result, a Assertion) error {
	s, err := statement(result, a)
	if err != nil {
		return err
	}
	if !slices.Equal(s.Opcodes, a.Opcodes) {
		return &AssertionError{
			Type:     AssertOpcodes,
			Expected: strings.Join(a.Opcodes, ", "),
			Actual:   strings.Join(s.Opcodes, ", "),
			Listing:  s.Listing,
		}
	}
	return nil
}

// assertOpcodeCount checks how often an opcode appears in a statement.
func assertOpcodeCount(result *Result, a Assertion) error {
	s, err := statement(result, a)
	if err != nil {
		return err
	}
	count := 0
	for _, op := range s.Opcodes {
		if op == a.Opcode {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertOpcodeCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Opcode),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Listing:  s.Listing,
		}
	}
	return nil
}

// assertInstruction checks one listing line by address.
func assertInstruction(result *Result, a Assertion) error {
	s, err := statement(result, a)
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimSuffix(s.Listing, "\n"), "\n")
	if a.Addr >= len(lines) {
		return &AssertionError{
			Type:     AssertInstruction,
			Expected: fmt.Sprintf("instruction at address %d", a.Addr),
			Actual:   fmt.Sprintf("program has %d instructions", len(lines)),
			Listing:  s.Listing,
		}
	}
	if lines[a.Addr] != a.Line {
		return &AssertionError{
			Type:     AssertInstruction,
			Expected: a.Line,
			Actual:   lines[a.Addr],
			Listing:  s.Listing,
		}
	}
	return nil
}

// assertIdempotentPrint rebuilds every canonical text and prints it again.
func assertIdempotentPrint(result *Result) error {
	for _, s := range result.Statements {
		stmts, err := builder.BuildSQL(s.Canonical)
		if err != nil {
			return &AssertionError{
				Type:     AssertIdempotentPrint,
				Expected: fmt.Sprintf("statement %d canonical text to rebuild", s.Index),
				Actual:   err.Error(),
			}
		}
		if len(stmts) != 1 {
			return &AssertionError{
				Type:     AssertIdempotentPrint,
				Expected: fmt.Sprintf("statement %d canonical text to hold one statement", s.Index),
				Actual:   fmt.Sprintf("%d statements", len(stmts)),
			}
		}
		again, err := printer.Print(stmts[0])
		if err != nil {
			return &AssertionError{
				Type:     AssertIdempotentPrint,
				Expected: fmt.Sprintf("statement %d to reprint", s.Index),
				Actual:   err.Error(),
			}
		}
		if again != s.Canonical {
			return &AssertionError{
				Type:     AssertIdempotentPrint,
				Expected: fmt.Sprintf("%q", s.Canonical),
				Actual:   fmt.Sprintf("%q", again),
			}
		}
	}
	return nil
}

// assertFinalCatalog checks a table in the catalog left by the run.
// Columns, when given, must match the declared names in order.
func assertFinalCatalog(result *Result, a Assertion) error {
	schema, name := "", a.Table
	if i := strings.LastIndexByte(a.Table, '.'); i >= 0 {
		schema, name = a.Table[:i], a.Table[i+1:]
	}
	if result.Catalog == nil {
		return &AssertionError{Type: AssertFinalCatalog, Expected: "a catalog", Actual: "none"}
	}
	t, ok := result.Catalog.LookupTable(schema, name)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalCatalog,
			Expected: fmt.Sprintf("table %s", a.Table),
			Actual:   "table not found",
		}
	}
	if len(a.Columns) > 0 && !slices.Equal(t.ColumnNames(), a.Columns) {
		return &AssertionError{
			Type:     AssertFinalCatalog,
			Expected: fmt.Sprintf("columns %v", a.Columns),
			Actual:   fmt.Sprintf("columns %v", t.ColumnNames()),
		}
	}
	return nil
}

// assertProgramLog checks how many programs the run recorded.
func assertProgramLog(result *Result, a Assertion) error {
	if result.Programs != a.Count {
		return &AssertionError{
			Type:     AssertProgramLog,
			Expected: fmt.Sprintf("%d recorded programs", a.Count),
			Actual:   fmt.Sprintf("%d recorded programs", result.Programs),
		}
	}
	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
