package codegen

import (
	"fmt"

	"github.com/roach88/sqlbc/internal/bytecode"
	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// insertTarget is the resolved destination of an INSERT.
type insertTarget struct {
	name     string
	db       int
	table    *catalog.Table // nil when the catalog does not know the table
	width    int            // record width
	columns  []int          // record position of each value, in value order
	conflict string
}

func (t insertTarget) withoutRowID() bool {
	return t.table != nil && t.table.Options.Has(ir.OptionWithoutRowID)
}

// resolveInsertTarget establishes how many values the statement must
// supply and where each one lands in the record.
func (c *Compiler) resolveInsertTarget(s ir.InsertStmt) (insertTarget, error) {
	ref := s.Table.Table
	t := insertTarget{name: ref.Name}

	conflict, err := conflictMode(s.Operation)
	if err != nil {
		return t, err
	}
	t.conflict = conflict

	if dup, ok := duplicateName(s.ColumnNames); ok {
		return t, sqlerr.Lower(sqlerr.KindDuplicateColumn, "column %s specified more than once", dup)
	}

	tbl, known := c.cat.LookupTable(ref.Schema, ref.Name)
	if known {
		t.table = tbl
		t.db = c.cat.Database(tbl.Schema)
		t.width = len(tbl.Columns)
	} else {
		t.db = c.cat.Database(ref.Schema)
	}

	switch {
	case s.ColumnNames != nil && known:
		t.columns = make([]int, len(s.ColumnNames))
		for i, name := range s.ColumnNames {
			idx := tbl.ColumnIndex(name)
			if idx < 0 {
				return t, sqlerr.Lower(sqlerr.KindUnresolvedReference, "table %s has no column named %s", ref.Qualified(), name)
			}
			t.columns[i] = idx
		}
	case s.ColumnNames != nil:
		t.width = len(s.ColumnNames)
		t.columns = identity(t.width)
	case known:
		t.columns = identity(t.width)
	default:
		return t, sqlerr.Lower(sqlerr.KindArityMismatch,
			"cannot determine the column count of unknown table %s without a column list", ref.Qualified())
	}
	return t, nil
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// conflictMode returns the P3 conflict keyword, "" when unspecified.
// A resolution outside the known set is fatal.
func conflictMode(op ir.InsertOperation) (string, error) {
	switch o := op.(type) {
	case ir.Replace:
		return ir.ConflictReplace.String(), nil
	case ir.Insert:
		mode := o.Resolution.String()
		if o.Resolution != ir.ConflictUnspecified && mode == "" {
			return "", sqlerr.Lower(sqlerr.KindUnknownConflictResolutionMethod,
				"unknown conflict resolution method %d", int(o.Resolution))
		}
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported insert operation: %T", op)
	}
}

func checkArity(got, want int) error {
	if got != want {
		return sqlerr.Lower(sqlerr.KindArityMismatch, "%d values for %d columns", got, want)
	}
	return nil
}

// compileInsert emits the transaction skeleton around the row source.
func (c *Compiler) compileInsert(b *bytecode.Builder, s ir.InsertStmt) error {
	if s.With != nil {
		source := ""
		if len(s.With.CTEs) > 0 {
			source = s.With.CTEs[0].Name
		}
		return sqlerr.Unsupported(sqlerr.PhaseLower, "WITH clause", source)
	}
	t, err := c.resolveInsertTarget(s)
	if err != nil {
		return err
	}

	// Validate arity before emitting anything.
	var values []ir.Expr
	var sel ir.SelectStmt
	switch tuples := s.Tuples.(type) {
	case ir.ValuesList:
		if err := checkArity(len(tuples.Exprs), len(t.columns)); err != nil {
			return err
		}
		values = tuples.Exprs
	case ir.DefaultValues:
	case ir.SelectStmt:
		sel = tuples
	default:
		return fmt.Errorf("unsupported inserted tuples: %T", s.Tuples)
	}

	cursor := b.AllocCursor()
	b.Emit(bytecode.OpTransaction, int64(t.db), 0, "", nil)
	b.Emit(bytecode.OpVerifyCookie, c.cat.SchemaCookie(), 0, "", nil)
	b.Emit(bytecode.OpOpenWrite, cursor, uint64(t.db), t.name, nil)

	if _, ok := s.Tuples.(ir.SelectStmt); ok {
		err = c.emitInsertSelect(b, t, cursor, sel)
	} else {
		err = c.emitInsertRow(b, t, cursor, values)
	}
	if err != nil {
		return err
	}

	b.Emit(bytecode.OpClose, cursor, 0, "", nil)
	b.Emit(bytecode.OpCommit, 0, 0, "", nil)
	return nil
}

// emitInsertRow stores one row built from row-free expressions. With no
// values every record column is NULL, as for DEFAULT VALUES.
func (c *Compiler) emitInsertRow(b *bytecode.Builder, t insertTarget, cursor int64, values []ir.Expr) error {
	var rowid int
	if !t.withoutRowID() {
		rowid = b.AllocRegs(1)
		b.Emit(bytecode.OpNewRecno, cursor, uint64(rowid), "", nil)
	}
	base := b.AllocRegs(t.width)
	rec := b.AllocRegs(1)

	filled := make([]bool, t.width)
	for i, e := range values {
		if err := emitRowFreeExpr(b, e, base+t.columns[i]); err != nil {
			return err
		}
		filled[t.columns[i]] = true
	}
	emitNullFill(b, base, filled)

	emitStore(b, t, cursor, base, rec, rowid)
	return nil
}

// emitInsertSelect scans the SELECT and stores one row per result row.
// The row id is allocated after the DISTINCT check so skipped rows do not
// consume one.
func (c *Compiler) emitInsertSelect(b *bytecode.Builder, t insertTarget, cursor int64, sel ir.SelectStmt) error {
	sources, err := c.resolveSources(b, sel)
	if err != nil {
		return err
	}
	slots, err := expandProjections(sources, sel.Projections)
	if err != nil {
		return err
	}
	if err := checkArity(len(slots), len(t.columns)); err != nil {
		return err
	}

	cursors := emitOpenRead(b, sources)
	distinct := sel.Modifier == ir.ModifierDistinct
	var eph int64
	if distinct {
		eph = b.AllocCursor()
		b.Emit(bytecode.OpOpenEphemeral, eph, uint64(t.width), "", nil)
	}

	var rowid int
	if !t.withoutRowID() {
		rowid = b.AllocRegs(1)
	}
	base := b.AllocRegs(t.width)
	rec := b.AllocRegs(1)

	err = emitScan(b, cursors, func() ([]int, error) {
		filled := make([]bool, t.width)
		for i, s := range slots {
			if err := emitSlot(b, s, base+t.columns[i]); err != nil {
				return nil, err
			}
			filled[t.columns[i]] = true
		}
		emitNullFill(b, base, filled)

		var skips []int
		if distinct {
			b.Emit(bytecode.OpMakeRecord, int64(base), uint64(t.width), "", bytecode.IntOperand(rec))
			skips = append(skips, emitDistinctCheck(b, eph, rec))
		}
		if !t.withoutRowID() {
			b.Emit(bytecode.OpNewRecno, cursor, uint64(rowid), "", nil)
		}
		emitStore(b, t, cursor, base, rec, rowid)
		return skips, nil
	})
	if err != nil {
		return err
	}

	for _, cur := range cursors {
		b.Emit(bytecode.OpClose, cur, 0, "", nil)
	}
	if distinct {
		b.Emit(bytecode.OpClose, eph, 0, "", nil)
	}
	return nil
}

func emitNullFill(b *bytecode.Builder, base int, filled []bool) {
	for i, ok := range filled {
		if !ok {
			b.Emit(bytecode.OpNull, 0, uint64(base+i), "", nil)
		}
	}
}

// emitStore packs the record and writes it, keyed by rowid for rowid
// tables and as an index entry for WITHOUT ROWID tables.
func emitStore(b *bytecode.Builder, t insertTarget, cursor int64, base, rec, rowid int) {
	b.Emit(bytecode.OpMakeRecord, int64(base), uint64(t.width), "", bytecode.IntOperand(rec))
	if t.withoutRowID() {
		b.Emit(bytecode.OpIdxInsert, cursor, uint64(rec), t.conflict, nil)
		return
	}
	b.Emit(bytecode.OpPutIntKey, cursor, uint64(rec), t.conflict, bytecode.IntOperand(rowid))
}
