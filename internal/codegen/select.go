package codegen

import (
	"fmt"

	"github.com/roach88/sqlbc/internal/bytecode"
	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// source is a FROM entry bound to a read cursor.
type source struct {
	cursor int64
	db     int
	name   string
	alias  string
	table  *catalog.Table
}

// slot is one expanded projection: either a literal or a column of a source.
type slot struct {
	lit    ir.Value
	cursor int64
	column int
	name   string
}

// resolveSources looks up every FROM table and assigns cursors in order.
func (c *Compiler) resolveSources(b *bytecode.Builder, sel ir.SelectStmt) ([]source, error) {
	sources := make([]source, 0, len(sel.Sources))
	for _, src := range sel.Sources {
		at, ok := src.(ir.AliasedTable)
		if !ok {
			return nil, sqlerr.Unsupported(sqlerr.PhaseLower, "subquery sources", fmt.Sprintf("%T", src))
		}
		tbl, ok := c.cat.LookupTable(at.Table.Schema, at.Table.Name)
		if !ok {
			return nil, sqlerr.Lower(sqlerr.KindUnresolvedReference, "no such table: %s", at.Table.Qualified())
		}
		sources = append(sources, source{
			cursor: b.AllocCursor(),
			db:     c.cat.Database(tbl.Schema),
			name:   at.Table.Name,
			alias:  at.Alias,
			table:  tbl,
		})
	}
	return sources, nil
}

// expandProjections resolves result columns to slots, expanding * and t.*
// in declaration order.
func expandProjections(sources []source, projections []ir.ResultColumn) ([]slot, error) {
	var slots []slot
	for _, rc := range projections {
		switch col := rc.(type) {
		case ir.StarColumn:
			for _, s := range sources {
				slots = append(slots, tableSlots(s)...)
			}
		case ir.TableStarColumn:
			s, ok := findSource(sources, col.Table)
			if !ok {
				return nil, sqlerr.Lower(sqlerr.KindUnresolvedReference, "no such table: %s", col.Table)
			}
			slots = append(slots, tableSlots(s)...)
		case ir.ExprColumn:
			sl, err := resolveExpr(sources, col.Expr)
			if err != nil {
				return nil, err
			}
			slots = append(slots, sl)
		default:
			return nil, fmt.Errorf("unsupported result column type: %T", rc)
		}
	}
	return slots, nil
}

func tableSlots(s source) []slot {
	out := make([]slot, len(s.table.Columns))
	for i, c := range s.table.Columns {
		out[i] = slot{cursor: s.cursor, column: i, name: c.Name}
	}
	return out
}

// findSource matches a t.* qualifier against aliases first, then table names.
func findSource(sources []source, qualifier string) (source, bool) {
	key := catalog.Fold(qualifier)
	for _, s := range sources {
		if s.alias != "" && catalog.Fold(s.alias) == key {
			return s, true
		}
	}
	for _, s := range sources {
		if catalog.Fold(s.name) == key {
			return s, true
		}
	}
	return source{}, false
}

// resolveExpr binds an expression to a slot. A column reference must
// name a column of exactly one source.
func resolveExpr(sources []source, e ir.Expr) (slot, error) {
	switch x := e.(type) {
	case ir.Literal:
		return slot{lit: x.Value}, nil
	case ir.ColumnRef:
		var found []slot
		for _, s := range sources {
			if idx := s.table.ColumnIndex(x.Name); idx >= 0 {
				found = append(found, slot{cursor: s.cursor, column: idx, name: s.table.Columns[idx].Name})
			}
		}
		switch len(found) {
		case 0:
			return slot{}, sqlerr.Lower(sqlerr.KindUnresolvedReference, "no such column: %s", x.Name)
		case 1:
			return found[0], nil
		default:
			return slot{}, sqlerr.Lower(sqlerr.KindUnresolvedReference, "ambiguous column name: %s", x.Name)
		}
	default:
		return slot{}, fmt.Errorf("unsupported expression type: %T", e)
	}
}

func emitSlot(b *bytecode.Builder, s slot, dest int) error {
	if s.lit != nil {
		return emitValue(b, s.lit, dest)
	}
	b.Emit(bytecode.OpColumn, s.cursor, uint64(dest), s.name, bytecode.IntOperand(s.column))
	return nil
}

func emitOpenRead(b *bytecode.Builder, sources []source) []int64 {
	cursors := make([]int64, len(sources))
	for i, s := range sources {
		b.Emit(bytecode.OpOpenRead, s.cursor, uint64(s.db), s.name, nil)
		cursors[i] = s.cursor
	}
	return cursors
}

// compileSelect emits a nested-loop scan producing one result row per
// combination of source rows.
func (c *Compiler) compileSelect(b *bytecode.Builder, sel ir.SelectStmt) error {
	sources, err := c.resolveSources(b, sel)
	if err != nil {
		return err
	}
	slots, err := expandProjections(sources, sel.Projections)
	if err != nil {
		return err
	}

	b.Emit(bytecode.OpVerifyCookie, c.cat.SchemaCookie(), 0, "", nil)
	cursors := emitOpenRead(b, sources)

	distinct := sel.Modifier == ir.ModifierDistinct
	var eph int64
	if distinct {
		eph = b.AllocCursor()
		b.Emit(bytecode.OpOpenEphemeral, eph, uint64(len(slots)), "", nil)
	}

	base := b.AllocRegs(len(slots))
	var rec int
	if distinct {
		rec = b.AllocRegs(1)
	}

	err = emitScan(b, cursors, func() ([]int, error) {
		for i, s := range slots {
			if err := emitSlot(b, s, base+i); err != nil {
				return nil, err
			}
		}
		var skips []int
		if distinct {
			b.Emit(bytecode.OpMakeRecord, int64(base), uint64(len(slots)), "", bytecode.IntOperand(rec))
			skips = append(skips, emitDistinctCheck(b, eph, rec))
		}
		b.Emit(bytecode.OpResultRow, int64(base), uint64(len(slots)), "", nil)
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
	b.Emit(bytecode.OpHalt, 0, 0, "", nil)
	return nil
}
