// Package catalog holds the schema facts that lowering consumes: which
// tables exist, their ordered column lists, their storage options and the
// current schema cookie.
//
// Names are matched case-insensitively using Unicode case folding. A table
// looked up without a schema resolves against "temp" first and then "main".
package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// Schema names with fixed database indexes.
const (
	SchemaMain = "main"
	SchemaTemp = "temp"
)

// Catalog resolves table definitions for lowering.
type Catalog interface {
	// LookupTable finds a table. An empty schema searches temp, then main.
	LookupTable(schema, name string) (*Table, bool)
	// SchemaCookie is the schema version a compiled program expects.
	SchemaCookie() int64
	// Database returns the database index a schema name maps to.
	Database(schema string) int
}

// Column is one declared column.
type Column struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name,omitempty"`
}

// Table is a resolved table definition.
type Table struct {
	Schema    string          `json:"schema"`
	Name      string          `json:"name"`
	Columns   []Column        `json:"columns"`
	Options   ir.TableOptions `json:"options"`
	Temporary bool            `json:"temporary,omitempty"`
}

// Qualified returns schema.name.
func (t *Table) Qualified() string {
	return t.Schema + "." + t.Name
}

// ColumnIndex returns the declaration index of a column, or -1.
func (t *Table) ColumnIndex(name string) int {
	key := Fold(name)
	for i, c := range t.Columns {
		if Fold(c.Name) == key {
			return i
		}
	}
	return -1
}

// ColumnNames returns the declared column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// TableFromStatement derives the table a CREATE TABLE would add.
// Temporary tables without a schema land in temp, others in main.
func TableFromStatement(s ir.CreateTableStmt) Table {
	schema := s.Table.Schema
	if schema == "" {
		schema = SchemaMain
		if s.Temporary {
			schema = SchemaTemp
		}
	}
	cols := make([]Column, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = Column{Name: c.Name, TypeName: c.TypeName}
	}
	return Table{
		Schema:    schema,
		Name:      s.Table.Name,
		Columns:   cols,
		Options:   s.Options,
		Temporary: s.Temporary || Fold(schema) == SchemaTemp,
	}
}

// Fold returns the case-folded form used to compare SQL names.
// A Caser carries state, so each call gets its own.
func Fold(s string) string {
	return cases.Fold().String(s)
}

func tableKey(schema, name string) string {
	return Fold(schema) + "\x00" + Fold(name)
}

// Memory is an in-memory Catalog that tracks schema changes.
// It is not safe for concurrent use.
type Memory struct {
	tables  map[string]*Table
	order   []string
	schemas []string
	cookie  int64
}

// NewMemory creates an empty catalog with the main and temp schemas.
func NewMemory() *Memory {
	return &Memory{
		tables:  make(map[string]*Table),
		schemas: []string{SchemaMain, SchemaTemp},
	}
}

// LookupTable implements Catalog.
func (m *Memory) LookupTable(schema, name string) (*Table, bool) {
	if schema != "" {
		t, ok := m.tables[tableKey(schema, name)]
		return t, ok
	}
	for _, s := range []string{SchemaTemp, SchemaMain} {
		if t, ok := m.tables[tableKey(s, name)]; ok {
			return t, true
		}
	}
	return nil, false
}

// SchemaCookie implements Catalog.
func (m *Memory) SchemaCookie() int64 {
	return m.cookie
}

// SetSchemaCookie overrides the cookie, used when restoring a catalog.
func (m *Memory) SetSchemaCookie(c int64) {
	m.cookie = c
}

// Database implements Catalog. Unknown schemas map to the index they
// would receive if attached next.
func (m *Memory) Database(schema string) int {
	if schema == "" {
		return 0
	}
	key := Fold(schema)
	for i, s := range m.schemas {
		if s == key {
			return i
		}
	}
	return len(m.schemas)
}

// AddTable registers a table and bumps the schema cookie.
func (m *Memory) AddTable(t Table) error {
	if t.Schema == "" {
		t.Schema = SchemaMain
	}
	if t.Name == "" {
		return fmt.Errorf("table name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", t.Qualified())
	}
	key := tableKey(t.Schema, t.Name)
	if _, exists := m.tables[key]; exists {
		return sqlerr.Lower(sqlerr.KindTableExists, "table %s already exists", t.Qualified())
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		k := Fold(c.Name)
		if seen[k] {
			return sqlerr.Lower(sqlerr.KindDuplicateColumn, "duplicate column name: %s", c.Name)
		}
		seen[k] = true
	}

	if m.Database(t.Schema) == len(m.schemas) {
		m.schemas = append(m.schemas, Fold(t.Schema))
	}
	t.Columns = append([]Column(nil), t.Columns...)
	m.tables[key] = &t
	m.order = append(m.order, key)
	m.cookie++
	return nil
}

// Apply records the schema effect of a successfully lowered statement.
// Only CREATE TABLE changes the catalog; an existing table under
// IF NOT EXISTS is left untouched.
func (m *Memory) Apply(stmt ir.Statement) error {
	ct, ok := stmt.(ir.CreateTableStmt)
	if !ok {
		return nil
	}
	t := TableFromStatement(ct)
	if _, exists := m.LookupTable(t.Schema, t.Name); exists && ct.IfNotExists {
		return nil
	}
	return m.AddTable(t)
}

// Tables returns the tables in the order they were added.
func (m *Memory) Tables() []Table {
	out := make([]Table, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, *m.tables[k])
	}
	return out
}

// String lists tables one per line, for diagnostics.
func (m *Memory) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cookie=%d\n", m.cookie)
	for _, t := range m.Tables() {
		fmt.Fprintf(&sb, "%s(%s)\n", t.Qualified(), strings.Join(t.ColumnNames(), ", "))
	}
	return sb.String()
}
