// Package builder converts concrete syntax trees into IR statements.
//
// There is one conversion function per grammar production. Each consumes
// the corresponding cst node and returns the matching IR value or a
// *sqlerr.Error in phase ParseError. Conversions never return partial IR:
// the first failure aborts the whole statement.
//
// The builder re-validates what the permissive grammar lets through:
//   - a statement node with no SELECT, CREATE TABLE or INSERT child
//   - a conflict clause attached to REPLACE
//   - an unrecognized conflict resolution method
//   - column constraints and CREATE TABLE ... AS SELECT
package builder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/sqlbc/internal/cst"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

// BuildSQL parses sql and builds every statement in it.
func BuildSQL(sql string) ([]ir.Statement, error) {
	prog, err := cst.Parse(sql)
	if err != nil {
		return nil, err
	}
	return BuildProgram(prog)
}

// BuildProgram builds every statement of a program in source order,
// stopping at the first failure.
func BuildProgram(prog *cst.Node) ([]ir.Statement, error) {
	stmts := make([]ir.Statement, 0, len(prog.Children))
	for i, n := range prog.Children {
		stmt, err := BuildStatement(n)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// BuildStatement builds one sql_stmt node. Exactly one of the select,
// create table and insert children must be present.
func BuildStatement(n *cst.Node) (ir.Statement, error) {
	sel := n.Child(cst.KindSelectStmt)
	create := n.Child(cst.KindCreateTableStmt)
	insert := n.Child(cst.KindInsertStmt)

	present := 0
	for _, c := range []*cst.Node{sel, create, insert} {
		if c != nil {
			present++
		}
	}
	if present != 1 {
		return nil, sqlerr.InvalidStatement(n.Text())
	}

	switch {
	case sel != nil:
		return buildSelect(sel)
	case create != nil:
		return buildCreateTable(create)
	default:
		return buildInsert(insert)
	}
}

// buildSelect resolves the modifier by checking ALL first, then DISTINCT.
// The grammar makes the two exclusive, so no further check is done.
func buildSelect(n *cst.Node) (ir.SelectStmt, error) {
	stmt := ir.SelectStmt{Modifier: ir.ModifierNone}
	switch {
	case n.Has("ALL"):
		stmt.Modifier = ir.ModifierAll
	case n.Has("DISTINCT"):
		stmt.Modifier = ir.ModifierDistinct
	}

	for _, rc := range n.All(cst.KindResultColumn) {
		col, err := buildResultColumn(rc)
		if err != nil {
			return ir.SelectStmt{}, err
		}
		stmt.Projections = append(stmt.Projections, col)
	}

	for _, src := range n.All(cst.KindTableOrSubquery) {
		stmt.Sources = append(stmt.Sources, buildTableOrSubquery(src))
	}

	if len(stmt.Projections) == 0 || len(stmt.Sources) == 0 {
		return ir.SelectStmt{}, sqlerr.InvalidStatement(n.Text())
	}
	return stmt, nil
}

func buildResultColumn(n *cst.Node) (ir.ResultColumn, error) {
	if n.Has("*") {
		if table := n.Child(cst.KindTableName); table != nil {
			return ir.TableStarColumn{Table: tableName(table)}, nil
		}
		return ir.StarColumn{}, nil
	}

	expr, err := buildExpr(n.Child(cst.KindExpr))
	if err != nil {
		return nil, err
	}
	return ir.ExprColumn{Expr: expr, Alias: columnAlias(n.Child(cst.KindColumnAlias))}, nil
}

func buildTableOrSubquery(n *cst.Node) ir.TableOrSubquery {
	return ir.AliasedTable{
		Table: buildTable(n),
		Alias: tableAlias(n.Child(cst.KindTableAlias)),
	}
}

// buildTable reads the schema_name and table_name children of n.
func buildTable(n *cst.Node) ir.Table {
	return ir.Table{
		Name:   tableName(n.Child(cst.KindTableName)),
		Schema: schemaName(n.Child(cst.KindSchemaName)),
	}
}

// buildExpr converts an identifier or literal expression.
func buildExpr(n *cst.Node) (ir.Expr, error) {
	if n == nil || n.Token == nil {
		return nil, sqlerr.Parse(sqlerr.KindInvalidStatement, n.Text(), "missing expression")
	}

	tok := n.Token
	switch {
	case n.Has("NULL"):
		return ir.Lit(ir.Null{}), nil
	case tok.Type == cst.TokenIdent:
		return ir.Col(tok.Value), nil
	case tok.Type == cst.TokenString:
		return ir.Lit(ir.String(tok.Value)), nil
	case tok.Type == cst.TokenBlob:
		return ir.Lit(ir.Blob(tok.Value)), nil
	case tok.Type == cst.TokenNumber:
		v, err := numericLiteral(tok.Value, n.Has("-"))
		if err != nil {
			return nil, err
		}
		return ir.Lit(v), nil
	default:
		return nil, sqlerr.Parse(sqlerr.KindInvalidStatement, n.Text(), "unrecognized expression")
	}
}

// numericLiteral converts number text to Integer, falling back to Float
// for decimals, exponents and integers that overflow int64.
func numericLiteral(text string, negative bool) (ir.Value, error) {
	if len(text) > 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		u, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return nil, sqlerr.Parse(sqlerr.KindSyntax, text, "hex literal too big")
		}
		v := int64(u)
		if negative {
			v = -v
		}
		return ir.Integer(v), nil
	}

	signed := text
	if negative {
		signed = "-" + text
	}

	if !strings.ContainsAny(text, ".eE") {
		if v, err := strconv.ParseInt(signed, 10, 64); err == nil {
			return ir.Integer(v), nil
		}
	}

	f, err := strconv.ParseFloat(signed, 64)
	if errors.Is(err, strconv.ErrRange) {
		return nil, sqlerr.Unsupported(sqlerr.PhaseParse, "non-finite float literal", text)
	}
	if err != nil {
		return nil, sqlerr.Parse(sqlerr.KindSyntax, text, "malformed number")
	}
	return ir.Float(f), nil
}

// buildCreateTable reads TEMP/TEMPORARY and IF NOT EXISTS as independent flags.
func buildCreateTable(n *cst.Node) (ir.CreateTableStmt, error) {
	if n.Child(cst.KindSelectStmt) != nil {
		return ir.CreateTableStmt{}, sqlerr.Unsupported(sqlerr.PhaseParse, "CREATE TABLE ... AS SELECT", n.Text())
	}

	stmt := ir.CreateTableStmt{
		Temporary:   n.Has("TEMP") || n.Has("TEMPORARY"),
		IfNotExists: n.Has("EXISTS"),
		Table:       buildTable(n),
	}

	for _, def := range n.All(cst.KindColumnDef) {
		col, err := buildColumnDef(def)
		if err != nil {
			return ir.CreateTableStmt{}, err
		}
		stmt.Columns = append(stmt.Columns, col)
	}
	if len(stmt.Columns) == 0 {
		return ir.CreateTableStmt{}, sqlerr.InvalidStatement(n.Text())
	}

	for _, opt := range n.All(cst.KindTableOption) {
		stmt.Options |= buildTableOption(opt)
	}
	return stmt, nil
}

func buildColumnDef(n *cst.Node) (ir.ColumnDef, error) {
	def := ir.ColumnDef{
		Name:     columnName(n.Child(cst.KindColumnName)),
		TypeName: typeName(n.Child(cst.KindTypeName)),
	}
	for _, c := range n.All(cst.KindColumnConstraint) {
		constraint, err := buildColumnConstraint(c)
		if err != nil {
			return ir.ColumnDef{}, err
		}
		def.Constraints = append(def.Constraints, constraint)
	}
	return def, nil
}

// buildColumnConstraint always fails: constraints are a declared limitation,
// never silently dropped.
func buildColumnConstraint(n *cst.Node) (ir.ColumnConstraint, error) {
	return ir.ColumnConstraint{}, sqlerr.Unsupported(sqlerr.PhaseParse, "column constraints", n.Text())
}

func buildTableOption(n *cst.Node) ir.TableOptions {
	switch {
	case n.Has("ROWID"):
		return ir.OptionWithoutRowID
	case n.Has("STRICT"):
		return ir.OptionStrict
	}
	return 0
}

func buildInsert(n *cst.Node) (ir.InsertStmt, error) {
	var stmt ir.InsertStmt

	if w := n.Child(cst.KindWithClause); w != nil {
		with, err := buildWithClause(w)
		if err != nil {
			return ir.InsertStmt{}, err
		}
		stmt.With = with
	}

	op, err := buildInsertOperation(n)
	if err != nil {
		return ir.InsertStmt{}, err
	}
	stmt.Operation = op

	stmt.Table = ir.AliasedTable{
		Table: buildTable(n),
		Alias: tableAlias(n.Child(cst.KindTableAlias)),
	}
	stmt.ColumnNames = columnNames(n)

	tuples, err := buildInsertedTuples(n)
	if err != nil {
		return ir.InsertStmt{}, err
	}
	stmt.Tuples = tuples
	return stmt, nil
}

// buildInsertOperation selects Replace or Insert from keyword presence.
// A conflict clause on REPLACE is rejected even though the grammar should
// already prevent it.
func buildInsertOperation(n *cst.Node) (ir.InsertOperation, error) {
	method := n.Child(cst.KindConflictResolutionMethod)
	switch {
	case n.Has("REPLACE"):
		if method != nil {
			return nil, sqlerr.Parse(sqlerr.KindConflictResolutionOnReplace, n.Text(),
				"conflict resolution %q cannot be combined with REPLACE", method.Text())
		}
		return ir.Replace{}, nil
	case n.Has("INSERT"):
		if method == nil {
			return ir.Insert{}, nil
		}
		res, err := buildConflictResolution(method)
		if err != nil {
			return nil, err
		}
		return ir.Insert{Resolution: res}, nil
	default:
		return nil, sqlerr.InvalidStatement(n.Text())
	}
}

func buildConflictResolution(n *cst.Node) (ir.ConflictResolution, error) {
	res, ok := ir.ParseConflictResolution(n.Text())
	if !ok {
		return ir.ConflictUnspecified, sqlerr.Parse(sqlerr.KindUnknownConflictResolutionMethod, n.Text(),
			"unknown conflict resolution method %q", n.Text())
	}
	return res, nil
}

// buildInsertedTuples checks VALUES, then a nested SELECT, and defaults to
// DEFAULT VALUES, in that priority order.
func buildInsertedTuples(n *cst.Node) (ir.InsertedTuples, error) {
	if values := n.Child(cst.KindValuesClause); values != nil {
		list := ir.ValuesList{}
		for _, e := range values.All(cst.KindExpr) {
			expr, err := buildExpr(e)
			if err != nil {
				return nil, err
			}
			list.Exprs = append(list.Exprs, expr)
		}
		return list, nil
	}
	if sel := n.Child(cst.KindSelectStmt); sel != nil {
		return buildSelect(sel)
	}
	return ir.DefaultValues{}, nil
}

func buildWithClause(n *cst.Node) (*ir.WithClause, error) {
	with := &ir.WithClause{Recursive: n.Has("RECURSIVE")}
	for _, c := range n.All(cst.KindCommonTableExpression) {
		cte, err := buildCommonTableExpression(c)
		if err != nil {
			return nil, err
		}
		with.CTEs = append(with.CTEs, cte)
	}
	if len(with.CTEs) == 0 {
		return nil, sqlerr.InvalidStatement(n.Text())
	}
	return with, nil
}

func buildCommonTableExpression(n *cst.Node) (ir.CommonTableExpression, error) {
	body, err := buildSelect(n.Child(cst.KindSelectStmt))
	if err != nil {
		return ir.CommonTableExpression{}, err
	}

	cte := ir.CommonTableExpression{
		Name:        tableName(n.Child(cst.KindTableName)),
		ColumnNames: columnNames(n),
		Body:        body,
	}
	switch {
	case n.Has("NOT"):
		cte.Materialized = ir.NotMaterialized
	case n.Has("MATERIALIZED"):
		cte.Materialized = ir.Materialized
	}
	return cte, nil
}

// columnNames collects the column_name children of n in order. No children
// yields nil, never an empty non-nil slice.
func columnNames(n *cst.Node) []string {
	var names []string
	for _, c := range n.All(cst.KindColumnName) {
		names = append(names, columnName(c))
	}
	return names
}

// Leaf conversions are identity extractions of the identifier text.

func tableName(n *cst.Node) string   { return n.Name() }
func schemaName(n *cst.Node) string  { return n.Name() }
func columnName(n *cst.Node) string  { return n.Name() }
func columnAlias(n *cst.Node) string { return n.Name() }
func tableAlias(n *cst.Node) string  { return n.Name() }

// typeName rebuilds a type from its terms: words separated by one space,
// then the size as "(n)" or "(n, m)". Quoted words keep double quotes.
// Comments, spacing and a '+' sign on a size do not reach the IR.
func typeName(n *cst.Node) string {
	var b strings.Builder
	for _, t := range n.Terms() {
		switch {
		case t.Type == cst.TokenIdent:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			if t.Quoted {
				b.WriteString(`"` + strings.ReplaceAll(t.Value, `"`, `""`) + `"`)
			} else {
				b.WriteString(t.Value)
			}
		case t.Type == cst.TokenNumber:
			b.WriteString(t.Text)
		case t.Text == ",":
			b.WriteString(", ")
		case t.Text == "(", t.Text == ")", t.Text == "-":
			b.WriteString(t.Text)
		}
	}
	return b.String()
}
