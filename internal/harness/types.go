package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
)

// StatementOutcome is one successfully compiled statement.
type StatementOutcome struct {
	Index       int          `json:"index"`
	Source      string       `json:"source"`
	Statement   ir.Statement `json:"-"`
	StatementID string       `json:"statement_id"`
	Canonical   string       `json:"canonical"`
	Listing     string       `json:"listing"`
	Opcodes     []string     `json:"opcodes"`
	ProgramID   string       `json:"program_id"`
}

// FailureOutcome describes the error that stopped a run.
type FailureOutcome struct {
	// Statement is the 1-based failing statement, or 0 when the program
	// did not parse.
	Statement int    `json:"statement"`
	Kind      string `json:"kind"`
	Phase     string `json:"phase"`
	Message   string `json:"message"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and every assertion match.
	Pass bool `json:"pass"`

	// Statements holds the statements compiled before any failure.
	Statements []StatementOutcome `json:"statements"`

	// Failure is set when compilation stopped early.
	Failure *FailureOutcome `json:"failure,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Catalog is the catalog left by the run.
	Catalog *catalog.Memory `json:"-"`

	// Programs is the number of programs recorded in the run's store.
	Programs int `json:"programs"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:       true,
		Statements: []StatementOutcome{},
		Errors:     []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Statement returns the outcome of the 1-based statement index.
func (r *Result) Statement(index int) (*StatementOutcome, bool) {
	if index < 1 || index > len(r.Statements) {
		return nil, false
	}
	return &r.Statements[index-1], true
}

// Snapshot renders the run as text for golden comparison: each statement's
// canonical form followed by its listing, then the failure if any.
func (r *Result) Snapshot() string {
	var buf strings.Builder
	for _, s := range r.Statements {
		fmt.Fprintf(&buf, "-- %d: %s\n", s.Index, s.Canonical)
		buf.WriteString(s.Listing)
	}
	if r.Failure != nil {
		fmt.Fprintf(&buf, "-- error: statement %d: %s: %s\n", r.Failure.Statement, r.Failure.Kind, r.Failure.Message)
	}
	return buf.String()
}
