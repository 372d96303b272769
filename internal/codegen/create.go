package codegen

import (
	"github.com/roach88/sqlbc/internal/bytecode"
	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/printer"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// compileCreateTable emits one schema mutation carrying the resolved
// definition, bumping the schema cookie. An existing table under
// IF NOT EXISTS lowers to a single Noop.
func (c *Compiler) compileCreateTable(b *bytecode.Builder, s ir.CreateTableStmt) error {
	if len(s.Columns) == 0 {
		return sqlerr.Unsupported(sqlerr.PhaseLower, "CREATE TABLE without column definitions", s.Table.Qualified())
	}
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		if len(col.Constraints) > 0 {
			return sqlerr.Unsupported(sqlerr.PhaseLower, "column constraints", col.Name)
		}
		names[i] = col.Name
	}
	if dup, ok := duplicateName(names); ok {
		return sqlerr.Lower(sqlerr.KindDuplicateColumn, "duplicate column name: %s", dup)
	}

	target := catalog.TableFromStatement(s)
	if _, exists := c.cat.LookupTable(target.Schema, target.Name); exists {
		if s.IfNotExists {
			b.Emit(bytecode.OpNoop, 0, 0, "", nil)
			return nil
		}
		return sqlerr.Lower(sqlerr.KindTableExists, "table %s already exists", target.Qualified())
	}

	def, err := printer.ColumnDefinitions(s)
	if err != nil {
		return err
	}

	db := int64(c.cat.Database(target.Schema))
	cookie := c.cat.SchemaCookie()
	b.Emit(bytecode.OpTransaction, db, 0, "", nil)
	b.Emit(bytecode.OpVerifyCookie, cookie, 0, "", nil)
	b.Emit(bytecode.OpCreateTable, db, uint64(s.Options), target.Name, bytecode.StringOperand(def))
	b.Emit(bytecode.OpSetCookie, cookie+1, 0, "", nil)
	b.Emit(bytecode.OpCommit, 0, 0, "", nil)
	return nil
}
