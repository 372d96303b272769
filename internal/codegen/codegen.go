// Package codegen lowers IR statements to bytecode programs.
//
// Lowering is a pure function of the statement and the catalog facts it
// reads. It never mutates the catalog; callers that process several
// statements apply schema changes between them. Any arity mismatch,
// unresolved name or unsupported clause fails the whole statement with a
// *sqlerr.Error in the LowerError phase.
//
// Register numbers start at 1 and cursor numbers at 0 in every program.
package codegen

import (
	"fmt"

	"github.com/roach88/sqlbc/internal/bytecode"
	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// Compiler lowers statements against a catalog.
type Compiler struct {
	cat catalog.Catalog
}

// NewCompiler creates a Compiler. A nil catalog behaves as an empty one.
func NewCompiler(cat catalog.Catalog) *Compiler {
	if cat == nil {
		cat = catalog.NewMemory()
	}
	return &Compiler{cat: cat}
}

// Compile lowers one statement.
func (c *Compiler) Compile(stmt ir.Statement) (*bytecode.Program, error) {
	if stmt == nil {
		return nil, fmt.Errorf("cannot compile nil statement")
	}

	b := bytecode.NewBuilder()
	var err error
	switch s := stmt.(type) {
	case ir.InsertStmt:
		err = c.compileInsert(b, s)
	case ir.SelectStmt:
		err = c.compileSelect(b, s)
	case ir.CreateTableStmt:
		err = c.compileCreateTable(b, s)
	default:
		return nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
	if err != nil {
		return nil, err
	}
	return b.Program(), nil
}

// emitValue loads a literal into register dest.
func emitValue(b *bytecode.Builder, v ir.Value, dest int) error {
	reg := uint64(dest)
	switch val := v.(type) {
	case ir.Integer:
		b.Emit(bytecode.OpInteger, int64(val), reg, "", nil)
	case ir.Float:
		b.Emit(bytecode.OpReal, 0, reg, "", bytecode.FloatOperand(val))
	case ir.String:
		b.Emit(bytecode.OpString, 0, reg, "", bytecode.StringOperand(val))
	case ir.Blob:
		b.Emit(bytecode.OpBlob, 0, reg, "", bytecode.BlobOperand(append([]byte(nil), val...)))
	case ir.Null:
		b.Emit(bytecode.OpNull, 0, reg, "", nil)
	default:
		return fmt.Errorf("unsupported literal type: %T", v)
	}
	return nil
}

// emitRowFreeExpr lowers an expression evaluated outside any row scan,
// as in a VALUES list. Column references have nothing to bind to.
func emitRowFreeExpr(b *bytecode.Builder, e ir.Expr, dest int) error {
	switch x := e.(type) {
	case ir.Literal:
		return emitValue(b, x.Value, dest)
	case ir.ColumnRef:
		return sqlerr.Lower(sqlerr.KindUnresolvedReference, "no such column: %s", x.Name)
	default:
		return fmt.Errorf("unsupported expression type: %T", e)
	}
}

// emitScan wraps body in one Rewind/Next loop per cursor, outermost first.
// body returns addresses of jumps that skip to the next row; they are
// patched to the innermost Next.
func emitScan(b *bytecode.Builder, cursors []int64, body func() ([]int, error)) error {
	rewinds := make([]int, len(cursors))
	for i, cur := range cursors {
		rewinds[i] = b.Emit(bytecode.OpRewind, cur, 0, "", nil)
	}

	skips, err := body()
	if err != nil {
		return err
	}
	for _, addr := range skips {
		b.PatchP2(addr, b.Here())
	}

	for i := len(cursors) - 1; i >= 0; i-- {
		b.Emit(bytecode.OpNext, cursors[i], uint64(rewinds[i]+1), "", nil)
		b.PatchP2(rewinds[i], b.Here())
	}
	return nil
}

// emitDistinctCheck skips the current row when record rec is already in
// ephemeral index eph, and remembers it otherwise.
func emitDistinctCheck(b *bytecode.Builder, eph int64, rec int) int {
	found := b.Emit(bytecode.OpFound, eph, 0, "", bytecode.IntOperand(rec))
	b.Emit(bytecode.OpIdxInsert, eph, uint64(rec), "", nil)
	return found
}

// duplicateName returns the first name repeated in names under case folding.
func duplicateName(names []string) (string, bool) {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		k := catalog.Fold(n)
		if seen[k] {
			return n, true
		}
		seen[k] = true
	}
	return "", false
}
