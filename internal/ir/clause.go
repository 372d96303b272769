package ir

import "strings"

// ResultColumn is one projection of a SELECT.
//
// ResultColumn types:
//   - StarColumn: *
//   - TableStarColumn: table.*
//   - ExprColumn: expr [AS alias]
type ResultColumn interface {
	resultColumnNode()
}

// StarColumn is an unqualified *.
type StarColumn struct{}

func (StarColumn) resultColumnNode() {}

// TableStarColumn is table.*; Table names a source table or its alias.
type TableStarColumn struct {
	Table string
}

func (TableStarColumn) resultColumnNode() {}

// ExprColumn is an expression projection with an optional alias.
type ExprColumn struct {
	Expr  Expr
	Alias string // "" when absent
}

func (ExprColumn) resultColumnNode() {}

// Table names a table, optionally qualified by a schema.
type Table struct {
	Name   string
	Schema string // "" when absent
}

// Qualified returns "schema.name" or just "name".
func (t Table) Qualified() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// TableOrSubquery is a row source in a FROM clause.
// Only AliasedTable exists today; subquery sources will be another variant.
type TableOrSubquery interface {
	sourceNode()
}

// AliasedTable is a table with an optional alias.
type AliasedTable struct {
	Table Table
	Alias string // "" when absent
}

func (AliasedTable) sourceNode() {}

// SelectModifier is the DISTINCT/ALL qualifier of a SELECT.
type SelectModifier int

const (
	ModifierNone SelectModifier = iota
	ModifierDistinct
	ModifierAll
)

// String returns the modifier's canonical name.
func (m SelectModifier) String() string {
	switch m {
	case ModifierDistinct:
		return "DISTINCT"
	case ModifierAll:
		return "ALL"
	default:
		return "NONE"
	}
}

// ColumnConstraint is a placeholder for column constraints.
// Building one is always an UNSUPPORTED_FEATURE error, so a ColumnDef with a
// non-empty Constraints slice never leaves the builder.
type ColumnConstraint struct{}

// ColumnDef is one column of a CREATE TABLE.
type ColumnDef struct {
	Name        string
	TypeName    string // "" when absent
	Constraints []ColumnConstraint
}

// TableOptions is the set of CREATE TABLE options.
type TableOptions uint8

const (
	OptionWithoutRowID TableOptions = 1 << iota
	OptionStrict
)

// Has reports whether every option in o is set.
func (t TableOptions) Has(o TableOptions) bool {
	return t&o == o
}

// Names returns the set options in declaration order.
func (t TableOptions) Names() []string {
	var names []string
	if t.Has(OptionWithoutRowID) {
		names = append(names, "WITHOUT ROWID")
	}
	if t.Has(OptionStrict) {
		names = append(names, "STRICT")
	}
	return names
}

// Materialization is the MATERIALIZED specifier of a CTE.
type Materialization int

const (
	MaterializedNone Materialization = iota
	Materialized
	NotMaterialized
)

// String returns the specifier's canonical name.
func (m Materialization) String() string {
	switch m {
	case Materialized:
		return "MATERIALIZED"
	case NotMaterialized:
		return "NOT_MATERIALIZED"
	default:
		return "NONE"
	}
}

// CommonTableExpression is one named subquery of a WITH clause.
type CommonTableExpression struct {
	Name         string
	ColumnNames  []string
	Materialized Materialization
	Body         SelectStmt
}

// WithClause introduces common table expressions ahead of a statement.
type WithClause struct {
	Recursive bool
	CTEs      []CommonTableExpression
}

// ConflictResolution is the OR clause of an INSERT.
// The zero value means no method was given.
type ConflictResolution int

const (
	ConflictUnspecified ConflictResolution = iota
	ConflictAbort
	ConflictFail
	ConflictIgnore
	ConflictReplace
	ConflictRollback
)

var conflictNames = map[ConflictResolution]string{
	ConflictAbort:    "ABORT",
	ConflictFail:     "FAIL",
	ConflictIgnore:   "IGNORE",
	ConflictReplace:  "REPLACE",
	ConflictRollback: "ROLLBACK",
}

// String returns the method keyword, or "" when unspecified.
func (c ConflictResolution) String() string {
	return conflictNames[c]
}

// ParseConflictResolution resolves a method keyword, ignoring case.
func ParseConflictResolution(keyword string) (ConflictResolution, bool) {
	upper := strings.ToUpper(keyword)
	for c, name := range conflictNames {
		if name == upper {
			return c, true
		}
	}
	return ConflictUnspecified, false
}

// InsertOperation selects between INSERT and REPLACE.
//
// InsertOperation types:
//   - Replace: REPLACE INTO; never carries a conflict resolution
//   - Insert: INSERT [OR method] INTO
type InsertOperation interface {
	operationNode()
}

// Replace is the REPLACE INTO operation.
type Replace struct{}

func (Replace) operationNode() {}

// Insert is the INSERT INTO operation with an optional conflict resolution.
type Insert struct {
	Resolution ConflictResolution
}

func (Insert) operationNode() {}

// InsertedTuples is the single row source of an INSERT.
//
// InsertedTuples types:
//   - ValuesList: VALUES (expr, ...)
//   - SelectStmt: a nested SELECT
//   - DefaultValues: DEFAULT VALUES
type InsertedTuples interface {
	tuplesNode()
}

// ValuesList is a single VALUES row.
type ValuesList struct {
	Exprs []Expr
}

func (ValuesList) tuplesNode() {}

// DefaultValues is DEFAULT VALUES.
type DefaultValues struct{}

func (DefaultValues) tuplesNode() {}
