package ir

// Statement is one compiled program unit.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the printer and the lowering.
//
// Statement types:
//   - SelectStmt
//   - CreateTableStmt
//   - InsertStmt
type Statement interface {
	statementNode() // Marker method - seals interface to this package
}

// SelectStmt is SELECT [DISTINCT|ALL] projections FROM sources.
//
// Projections and Sources are never empty.
type SelectStmt struct {
	Modifier    SelectModifier
	Projections []ResultColumn
	Sources     []TableOrSubquery
}

func (SelectStmt) statementNode() {}
func (SelectStmt) tuplesNode()    {}

// CreateTableStmt is CREATE [TEMP] TABLE [IF NOT EXISTS] table (columns) options.
//
// Columns is never empty.
type CreateTableStmt struct {
	Temporary   bool
	IfNotExists bool
	Table       Table
	Columns     []ColumnDef
	Options     TableOptions
}

func (CreateTableStmt) statementNode() {}

// InsertStmt is [WITH ...] INSERT|REPLACE INTO table [(columns)] tuples.
//
// ColumnNames is nil when no column list was written and never an empty
// non-nil slice.
type InsertStmt struct {
	With        *WithClause // nil when absent
	Operation   InsertOperation
	Table       AliasedTable
	ColumnNames []string
	Tuples      InsertedTuples
}

func (InsertStmt) statementNode() {}
