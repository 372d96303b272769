package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlbc/internal/bytecode"
	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// CaseSuccess is the expect case of a program that compiles completely.
const CaseSuccess = "Success"

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// CatalogDir is a directory of CUE table definitions.
	// Relative paths are resolved against the scenario file.
	CatalogDir string `yaml:"catalog_dir,omitempty"`

	// Catalog declares tables inline. It is applied after CatalogDir.
	Catalog *CatalogSpec `yaml:"catalog,omitempty"`

	// SQL is the program to compile, one or more statements.
	SQL string `yaml:"sql"`

	// Expect names the overall outcome. Nil means Success.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the compiled statements and final catalog.
	Assertions []Assertion `yaml:"assertions"`

	// Golden compares the full listing with testdata/golden/<name>.golden.
	Golden bool `yaml:"golden,omitempty"`
}

// CatalogSpec declares the starting catalog of a scenario.
type CatalogSpec struct {
	// Cookie overrides the schema cookie. Zero keeps the table count.
	Cookie int64 `yaml:"cookie,omitempty"`

	Tables []TableSpec `yaml:"tables"`
}

// TableSpec declares one table. Each column is "name" or "name TYPE".
type TableSpec struct {
	Schema       string   `yaml:"schema,omitempty"`
	Name         string   `yaml:"name"`
	Columns      []string `yaml:"columns"`
	WithoutRowID bool     `yaml:"without_rowid,omitempty"`
	Strict       bool     `yaml:"strict,omitempty"`
	Temporary    bool     `yaml:"temporary,omitempty"`
}

// Table converts the declaration to a catalog table.
func (s TableSpec) Table() catalog.Table {
	t := catalog.Table{Schema: s.Schema, Name: s.Name, Temporary: s.Temporary}
	if t.Temporary && t.Schema == "" {
		t.Schema = catalog.SchemaTemp
	}
	for _, col := range s.Columns {
		name, typ, _ := strings.Cut(strings.TrimSpace(col), " ")
		t.Columns = append(t.Columns, catalog.Column{Name: name, TypeName: strings.TrimSpace(typ)})
	}
	if s.WithoutRowID {
		t.Options |= ir.OptionWithoutRowID
	}
	if s.Strict {
		t.Options |= ir.OptionStrict
	}
	return t
}

// ExpectClause specifies the expected outcome of compiling the program.
type ExpectClause struct {
	// Case is "Success" or an error kind such as "ARITY_MISMATCH".
	Case string `yaml:"case"`

	// Statement is the 1-based index of the failing statement.
	// Zero means the whole program failed to parse.
	Statement int `yaml:"statement,omitempty"`

	// Message must appear in the error text when set.
	Message string `yaml:"message,omitempty"`
}

// IsSuccess reports whether the clause expects a complete compile.
func (e *ExpectClause) IsSuccess() bool {
	return e == nil || e.Case == "" || e.Case == CaseSuccess
}

// Assertion validates one aspect of a scenario run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "canonical": Text equals the printed statement
	// - "opcodes": Opcodes equals the statement's opcode sequence
	// - "opcode_count": Opcode appears Count times in the statement
	// - "instruction": Line equals the listing line at Addr
	// - "idempotent_print": reprinting every statement is stable
	// - "final_catalog": Table exists with Columns
	// - "program_log": Count programs were recorded
	Type string `yaml:"type"`

	// Statement is the 1-based statement index for statement-scoped types.
	Statement int `yaml:"statement,omitempty"`

	// Text is the expected canonical text (canonical).
	Text string `yaml:"text,omitempty"`

	// Opcodes is the expected opcode sequence (opcodes).
	Opcodes []string `yaml:"opcodes,omitempty"`

	// Opcode is the counted opcode (opcode_count).
	Opcode string `yaml:"opcode,omitempty"`

	// Addr is the instruction address (instruction).
	Addr int `yaml:"addr,omitempty"`

	// Line is the expected listing line without its newline (instruction).
	Line string `yaml:"line,omitempty"`

	// Count is the expected number of occurrences (opcode_count, program_log).
	Count int `yaml:"count,omitempty"`

	// Table is a table name, optionally schema-qualified (final_catalog).
	Table string `yaml:"table,omitempty"`

	// Columns are the expected column names in order (final_catalog).
	Columns []string `yaml:"columns,omitempty"`
}

// Assertion type constants.
const (
	AssertCanonical       = "canonical"
	AssertOpcodes         = "opcodes"
	AssertOpcodeCount     = "opcode_count"
	AssertInstruction     = "instruction"
	AssertIdempotentPrint = "idempotent_print"
	AssertFinalCatalog    = "final_catalog"
	AssertProgramLog      = "program_log"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative catalog_dir is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.CatalogDir != "" && !filepath.IsAbs(scenario.CatalogDir) {
		scenario.CatalogDir = filepath.Join(filepath.Dir(path), scenario.CatalogDir)
	}
	if scenario.CatalogDir != "" {
		if _, err := os.Stat(scenario.CatalogDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: catalog directory not found: %s", scenario.CatalogDir)
		}
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML and validates it.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if strings.TrimSpace(s.SQL) == "" {
		return fmt.Errorf("sql is required")
	}

	if s.Catalog != nil {
		for i, t := range s.Catalog.Tables {
			if t.Name == "" {
				return fmt.Errorf("catalog.tables[%d]: name is required", i)
			}
			if len(t.Columns) == 0 {
				return fmt.Errorf("catalog.tables[%d]: columns list is required and must be non-empty", i)
			}
		}
	}

	if s.Expect != nil && !s.Expect.IsSuccess() {
		if _, ok := sqlerr.ParseKind(s.Expect.Case); !ok {
			return fmt.Errorf("expect: unknown case %q", s.Expect.Case)
		}
		if s.Expect.Statement < 0 {
			return fmt.Errorf("expect: statement must be non-negative")
		}
	}

	if len(s.Assertions) == 0 && s.Expect.IsSuccess() && !s.Golden {
		return fmt.Errorf("assertions list is required unless expect names an error case or golden is set")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needStatement := func() error {
		if a.Statement < 1 {
			return fmt.Errorf("assertions[%d]: statement (1-based) is required for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertCanonical:
		if err := needStatement(); err != nil {
			return err
		}
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for canonical", index)
		}
	case AssertOpcodes:
		if err := needStatement(); err != nil {
			return err
		}
		if len(a.Opcodes) == 0 {
			return fmt.Errorf("assertions[%d]: opcodes list is required for opcodes", index)
		}
		for _, name := range a.Opcodes {
			if _, ok := bytecode.ParseOpcode(name); !ok {
				return fmt.Errorf("assertions[%d]: unknown opcode %q", index, name)
			}
		}
	case AssertOpcodeCount:
		if err := needStatement(); err != nil {
			return err
		}
		if _, ok := bytecode.ParseOpcode(a.Opcode); !ok {
			return fmt.Errorf("assertions[%d]: unknown opcode %q", index, a.Opcode)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for opcode_count", index)
		}
	case AssertInstruction:
		if err := needStatement(); err != nil {
			return err
		}
		if a.Addr < 0 {
			return fmt.Errorf("assertions[%d]: addr must be non-negative", index)
		}
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for instruction", index)
		}
	case AssertIdempotentPrint:
	case AssertFinalCatalog:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_catalog", index)
		}
	case AssertProgramLog:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for program_log", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
