// Package printer renders IR statements back to canonical SQL text.
//
// Print is a pure function of the IR value: whitespace is normalized, there
// is no trailing semicolon, keywords are upper case and identifiers are
// quoted only when they would not lex back to the same name. Building the
// printed text again yields a structurally equal statement.
package printer

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/sqlbc/internal/cst"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// Print renders one statement.
func Print(stmt ir.Statement) (string, error) {
	f := &formatter{}
	if err := f.formatStatement(stmt); err != nil {
		return "", err
	}
	return f.buf.String(), nil
}

// PrintExpr renders one expression.
func PrintExpr(e ir.Expr) (string, error) {
	f := &formatter{}
	if err := f.formatExpr(e); err != nil {
		return "", err
	}
	return f.buf.String(), nil
}

// formatter is a flat SQL string builder.
type formatter struct {
	buf strings.Builder
}

func (f *formatter) write(s string) {
	f.buf.WriteString(s)
}

// commaSep writes n items separated by ", ", stopping at the first error.
func (f *formatter) commaSep(n int, fn func(i int) error) error {
	for i := 0; i < n; i++ {
		if i > 0 {
			f.write(", ")
		}
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

func (f *formatter) writeIdent(s string) {
	f.write(QuoteIdent(s))
}

func (f *formatter) writeIdentList(names []string) {
	_ = f.commaSep(len(names), func(i int) error {
		f.writeIdent(names[i])
		return nil
	})
}

// QuoteIdent returns name unchanged when it lexes back as the same bare
// identifier, and double-quoted otherwise.
func QuoteIdent(name string) string {
	if isBareIdent(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isBareIdent(name string) bool {
	if name == "" || cst.IsKeyword(name) {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '$' || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)):
		default:
			return false
		}
	}
	return true
}

func (f *formatter) formatStatement(stmt ir.Statement) error {
	switch s := stmt.(type) {
	case ir.SelectStmt:
		return f.formatSelect(s)
	case ir.CreateTableStmt:
		return f.formatCreateTable(s)
	case ir.InsertStmt:
		return f.formatInsert(s)
	default:
		return fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (f *formatter) formatSelect(s ir.SelectStmt) error {
	f.write("SELECT ")
	switch s.Modifier {
	case ir.ModifierDistinct:
		f.write("DISTINCT ")
	case ir.ModifierAll:
		f.write("ALL ")
	}

	err := f.commaSep(len(s.Projections), func(i int) error {
		return f.formatResultColumn(s.Projections[i])
	})
	if err != nil {
		return err
	}

	f.write(" FROM ")
	return f.commaSep(len(s.Sources), func(i int) error {
		return f.formatSource(s.Sources[i])
	})
}

func (f *formatter) formatResultColumn(rc ir.ResultColumn) error {
	switch c := rc.(type) {
	case ir.StarColumn:
		f.write("*")
	case ir.TableStarColumn:
		f.writeIdent(c.Table)
		f.write(".*")
	case ir.ExprColumn:
		if err := f.formatExpr(c.Expr); err != nil {
			return err
		}
		if c.Alias != "" {
			f.write(" AS ")
			f.writeIdent(c.Alias)
		}
	default:
		return fmt.Errorf("unsupported result column type: %T", rc)
	}
	return nil
}

func (f *formatter) formatSource(src ir.TableOrSubquery) error {
	at, ok := src.(ir.AliasedTable)
	if !ok {
		return fmt.Errorf("unsupported source type: %T", src)
	}
	f.formatAliasedTable(at)
	return nil
}

func (f *formatter) formatAliasedTable(at ir.AliasedTable) {
	f.formatTable(at.Table)
	if at.Alias != "" {
		f.write(" AS ")
		f.writeIdent(at.Alias)
	}
}

func (f *formatter) formatTable(t ir.Table) {
	if t.Schema != "" {
		f.writeIdent(t.Schema)
		f.write(".")
	}
	f.writeIdent(t.Name)
}

func (f *formatter) formatExpr(e ir.Expr) error {
	switch x := e.(type) {
	case ir.ColumnRef:
		f.writeIdent(x.Name)
		return nil
	case ir.Literal:
		return f.formatLiteral(x.Value)
	default:
		return fmt.Errorf("unsupported expression type: %T", e)
	}
}

func (f *formatter) formatLiteral(v ir.Value) error {
	switch val := v.(type) {
	case ir.Integer:
		f.write(strconv.FormatInt(int64(val), 10))
	case ir.Float:
		s, err := formatFloat(float64(val))
		if err != nil {
			return err
		}
		f.write(s)
	case ir.String:
		f.write("'" + strings.ReplaceAll(string(val), "'", "''") + "'")
	case ir.Blob:
		f.write("X'" + strings.ToUpper(hex.EncodeToString(val)) + "'")
	case ir.Null:
		f.write("NULL")
	default:
		return fmt.Errorf("unsupported literal type: %T", v)
	}
	return nil
}

// formatFloat renders f so that it lexes back as a float: the text always
// carries a '.' or an exponent.
func formatFloat(f float64) (string, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return "", sqlerr.Unsupported(sqlerr.PhasePrint, "non-finite float literal", strconv.FormatFloat(f, 'g', -1, 64))
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s, nil
}

func (f *formatter) formatCreateTable(s ir.CreateTableStmt) error {
	f.write("CREATE ")
	if s.Temporary {
		f.write("TEMPORARY ")
	}
	f.write("TABLE ")
	if s.IfNotExists {
		f.write("IF NOT EXISTS ")
	}
	f.formatTable(s.Table)
	f.write(" (")
	if err := f.formatColumnDefs(s.Columns); err != nil {
		return err
	}
	f.write(")")
	if names := s.Options.Names(); len(names) > 0 {
		f.write(" " + strings.Join(names, ", "))
	}
	return nil
}

func (f *formatter) formatColumnDefs(cols []ir.ColumnDef) error {
	return f.commaSep(len(cols), func(i int) error {
		return f.formatColumnDef(cols[i])
	})
}

// formatColumnDef renders name [type]. Constraints cannot be represented,
// so a definition carrying any is rejected rather than printed without them.
func (f *formatter) formatColumnDef(c ir.ColumnDef) error {
	if len(c.Constraints) > 0 {
		return sqlerr.Unsupported(sqlerr.PhasePrint, "column constraints", c.Name)
	}
	f.writeIdent(c.Name)
	if c.TypeName != "" {
		f.write(" " + c.TypeName)
	}
	return nil
}

// ColumnDefinitions renders the parenthesized column list and options of a
// CREATE TABLE, e.g. "(a, b INTEGER) STRICT".
func ColumnDefinitions(s ir.CreateTableStmt) (string, error) {
	f := &formatter{}
	f.write("(")
	if err := f.formatColumnDefs(s.Columns); err != nil {
		return "", err
	}
	f.write(")")
	if names := s.Options.Names(); len(names) > 0 {
		f.write(" " + strings.Join(names, ", "))
	}
	return f.buf.String(), nil
}

func (f *formatter) formatInsert(s ir.InsertStmt) error {
	if s.With != nil {
		if err := f.formatWith(*s.With); err != nil {
			return err
		}
		f.write(" ")
	}

	switch op := s.Operation.(type) {
	case ir.Replace:
		f.write("REPLACE")
	case ir.Insert:
		f.write("INSERT")
		if op.Resolution != ir.ConflictUnspecified {
			mode := op.Resolution.String()
			if mode == "" {
				return &sqlerr.Error{
					Phase:   sqlerr.PhasePrint,
					Kind:    sqlerr.KindUnknownConflictResolutionMethod,
					Message: fmt.Sprintf("unknown conflict resolution method %d", int(op.Resolution)),
					Pos:     -1,
				}
			}
			f.write(" OR " + mode)
		}
	default:
		return fmt.Errorf("unsupported insert operation: %T", s.Operation)
	}

	f.write(" INTO ")
	f.formatAliasedTable(s.Table)

	if len(s.ColumnNames) > 0 {
		f.write(" (")
		f.writeIdentList(s.ColumnNames)
		f.write(")")
	}

	switch tuples := s.Tuples.(type) {
	case ir.ValuesList:
		f.write(" VALUES(")
		err := f.commaSep(len(tuples.Exprs), func(i int) error {
			return f.formatExpr(tuples.Exprs[i])
		})
		if err != nil {
			return err
		}
		f.write(")")
	case ir.SelectStmt:
		f.write(" ")
		return f.formatSelect(tuples)
	case ir.DefaultValues:
		f.write(" DEFAULT VALUES")
	default:
		return fmt.Errorf("unsupported inserted tuples: %T", s.Tuples)
	}
	return nil
}

// formatWith renders WITH [RECURSIVE] cte, ... ahead of the owning statement.
func (f *formatter) formatWith(w ir.WithClause) error {
	f.write("WITH ")
	if w.Recursive {
		f.write("RECURSIVE ")
	}
	return f.commaSep(len(w.CTEs), func(i int) error {
		cte := w.CTEs[i]
		f.writeIdent(cte.Name)
		if len(cte.ColumnNames) > 0 {
			f.write("(")
			f.writeIdentList(cte.ColumnNames)
			f.write(")")
		}
		f.write(" AS ")
		switch cte.Materialized {
		case ir.Materialized:
			f.write("MATERIALIZED ")
		case ir.NotMaterialized:
			f.write("NOT MATERIALIZED ")
		}
		f.write("(")
		if err := f.formatSelect(cte.Body); err != nil {
			return err
		}
		f.write(")")
		return nil
	})
}
