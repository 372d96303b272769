package cst

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbc/internal/sqlerr"
)

func mustParse(t *testing.T, sql string) *Node {
	t.Helper()
	stmt, err := ParseStatement(sql)
	require.NoError(t, err)
	require.Equal(t, KindSQLStmt, stmt.Kind)
	return stmt
}

func names(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return out
}

func TestParse_Select(t *testing.T) {
	stmt := mustParse(t, "SELECT a, b AS x FROM t1, t2")

	sel := stmt.Child(KindSelectStmt)
	require.NotNil(t, sel)
	assert.Nil(t, stmt.Child(KindInsertStmt))
	assert.Nil(t, stmt.Child(KindCreateTableStmt))

	cols := sel.All(KindResultColumn)
	require.Len(t, cols, 2)
	assert.Equal(t, "a", cols[0].Child(KindExpr).Text())
	assert.Nil(t, cols[0].Child(KindColumnAlias))
	assert.Equal(t, "x", cols[1].Child(KindColumnAlias).Name())
	assert.True(t, cols[1].Has("AS"))

	srcs := sel.All(KindTableOrSubquery)
	require.Len(t, srcs, 2)
	assert.Equal(t, "t1", srcs[0].Child(KindTableName).Name())
	assert.Equal(t, "t2", srcs[1].Child(KindTableName).Name())
	assert.Equal(t, "SELECT a, b AS x FROM t1, t2", sel.Text())
}

func TestParse_SelectModifiers(t *testing.T) {
	assert.True(t, mustParse(t, "SELECT DISTINCT a FROM t").Child(KindSelectStmt).Has("DISTINCT"))
	assert.True(t, mustParse(t, "select all a from t").Child(KindSelectStmt).Has("ALL"))

	plain := mustParse(t, "SELECT a FROM t").Child(KindSelectStmt)
	assert.False(t, plain.Has("DISTINCT"))
	assert.False(t, plain.Has("ALL"))
}

func TestParse_SelectStarsAndAliases(t *testing.T) {
	sel := mustParse(t, "SELECT *, u.*, c d FROM main.users AS u, orders o").Child(KindSelectStmt)
	cols := sel.All(KindResultColumn)
	require.Len(t, cols, 3)

	assert.True(t, cols[0].Has("*"))
	assert.Nil(t, cols[0].Child(KindTableName))

	assert.True(t, cols[1].Has("*"))
	assert.Equal(t, "u", cols[1].Child(KindTableName).Name())

	assert.Equal(t, "d", cols[2].Child(KindColumnAlias).Name())
	assert.False(t, cols[2].Has("AS"))

	srcs := sel.All(KindTableOrSubquery)
	assert.Equal(t, "main", srcs[0].Child(KindSchemaName).Name())
	assert.Equal(t, "users", srcs[0].Child(KindTableName).Name())
	assert.Equal(t, "u", srcs[0].Child(KindTableAlias).Name())
	assert.Equal(t, "o", srcs[1].Child(KindTableAlias).Name())
}

func TestParse_Expressions(t *testing.T) {
	vals := mustParse(t, "INSERT INTO t VALUES (a, -1, +2.5, 'x', X'00', NULL, \"q\")").
		Child(KindInsertStmt).Child(KindValuesClause).All(KindExpr)
	require.Len(t, vals, 7)

	assert.Equal(t, TokenIdent, vals[0].Token.Type)
	assert.True(t, vals[1].Has("-"))
	assert.Equal(t, "1", vals[1].Token.Value)
	assert.True(t, vals[2].Has("+"))
	assert.Equal(t, TokenString, vals[3].Token.Type)
	assert.Equal(t, TokenBlob, vals[4].Token.Type)
	assert.True(t, vals[5].Has("NULL"))
	assert.True(t, vals[6].Token.Quoted)
}

func TestParse_CreateTable(t *testing.T) {
	ct := mustParse(t, "CREATE TABLE IF NOT EXISTS s.t (a, b INTEGER)").Child(KindCreateTableStmt)
	require.NotNil(t, ct)

	assert.True(t, ct.Has("IF"))
	assert.True(t, ct.Has("EXISTS"))
	assert.False(t, ct.Has("TEMP"))
	assert.Equal(t, "s", ct.Child(KindSchemaName).Name())
	assert.Equal(t, "t", ct.Child(KindTableName).Name())

	defs := ct.All(KindColumnDef)
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].Child(KindColumnName).Name())
	assert.Nil(t, defs[0].Child(KindTypeName))
	assert.Equal(t, "INTEGER", defs[1].Child(KindTypeName).Text())
}

func TestParse_CreateTableTypesAndOptions(t *testing.T) {
	ct := mustParse(t, "CREATE TEMP TABLE t (a VARCHAR(10), b DOUBLE PRECISION, c DECIMAL(10, -2)) WITHOUT ROWID, STRICT").
		Child(KindCreateTableStmt)
	require.NotNil(t, ct)
	assert.True(t, ct.Has("TEMP"))

	defs := ct.All(KindColumnDef)
	require.Len(t, defs, 3)
	assert.Equal(t, "VARCHAR(10)", defs[0].Child(KindTypeName).Text())
	assert.Equal(t, "DOUBLE PRECISION", defs[1].Child(KindTypeName).Text())
	assert.Equal(t, "DECIMAL(10, -2)", defs[2].Child(KindTypeName).Text())

	var terms []string
	for _, tok := range defs[2].Child(KindTypeName).Terms() {
		terms = append(terms, tok.Text)
	}
	assert.Equal(t, []string{"DECIMAL", "(", "10", ",", "-", "2", ")"}, terms)
	assert.Equal(t, []string{"CREATE", "TEMP", "TABLE"}, ct.Keywords())

	opts := ct.All(KindTableOption)
	require.Len(t, opts, 2)
	assert.True(t, opts[0].Has("ROWID"))
	assert.True(t, opts[1].Has("STRICT"))
}

func TestParse_TypeNameTermsSkipComments(t *testing.T) {
	ct := mustParse(t, "CREATE TABLE t (a VARCHAR -- note\n BIG /* x */ (10))").Child(KindCreateTableStmt)
	require.NotNil(t, ct)

	typ := ct.Child(KindColumnDef).Child(KindTypeName)
	var terms []string
	for _, tok := range typ.Terms() {
		terms = append(terms, tok.Text)
	}
	assert.Equal(t, []string{"VARCHAR", "BIG", "(", "10", ")"}, terms)
	assert.Contains(t, typ.Text(), "-- note")
}

func TestParse_CreateTableConstraintsAreOpaque(t *testing.T) {
	ct := mustParse(t, "CREATE TABLE t (a INTEGER PRIMARY KEY, b TEXT NOT NULL DEFAULT ('x'), c CHECK (c > 0))").
		Child(KindCreateTableStmt)
	defs := ct.All(KindColumnDef)
	require.Len(t, defs, 3)

	assert.Equal(t, "PRIMARY KEY", defs[0].Child(KindColumnConstraint).Text())
	assert.Equal(t, "NOT NULL DEFAULT ('x')", defs[1].Child(KindColumnConstraint).Text())
	assert.Nil(t, defs[2].Child(KindTypeName))
	assert.Equal(t, "CHECK (c > 0)", defs[2].Child(KindColumnConstraint).Text())
}

func TestParse_CreateTableAsSelect(t *testing.T) {
	ct := mustParse(t, "CREATE TABLE t AS SELECT a FROM u").Child(KindCreateTableStmt)
	assert.True(t, ct.Has("AS"))
	assert.NotNil(t, ct.Child(KindSelectStmt))
	assert.Empty(t, ct.All(KindColumnDef))
}

func TestParse_Insert(t *testing.T) {
	ins := mustParse(t, "INSERT OR IGNORE INTO main.t AS x (a, b) VALUES (1, 2)").Child(KindInsertStmt)
	require.NotNil(t, ins)

	assert.True(t, ins.Has("INSERT"))
	assert.False(t, ins.Has("REPLACE"))
	assert.Equal(t, "IGNORE", ins.Child(KindConflictResolutionMethod).Text())
	assert.Equal(t, "main", ins.Child(KindSchemaName).Name())
	assert.Equal(t, "x", ins.Child(KindTableAlias).Name())
	assert.Equal(t, []string{"a", "b"}, names(ins.All(KindColumnName)))
	assert.Len(t, ins.Child(KindValuesClause).All(KindExpr), 2)
}

func TestParse_InsertRowSources(t *testing.T) {
	sel := mustParse(t, "INSERT INTO t SELECT a FROM u").Child(KindInsertStmt)
	assert.Nil(t, sel.Child(KindValuesClause))
	assert.NotNil(t, sel.Child(KindSelectStmt))

	def := mustParse(t, "INSERT INTO t DEFAULT VALUES").Child(KindInsertStmt)
	assert.Nil(t, def.Child(KindValuesClause))
	assert.Nil(t, def.Child(KindSelectStmt))
	assert.True(t, def.Has("DEFAULT"))
}

func TestParse_ReplaceAcceptsConflictClause(t *testing.T) {
	// Rejected later by the builder, not here.
	ins := mustParse(t, "REPLACE OR IGNORE INTO t VALUES (1)").Child(KindInsertStmt)
	assert.True(t, ins.Has("REPLACE"))
	assert.NotNil(t, ins.Child(KindConflictResolutionMethod))

	unknown := mustParse(t, "INSERT OR SKIP INTO t VALUES (1)").Child(KindInsertStmt)
	assert.Equal(t, "SKIP", unknown.Child(KindConflictResolutionMethod).Text())
}

func TestParse_WithClause(t *testing.T) {
	ins := mustParse(t, "WITH RECURSIVE c(x, y) AS NOT MATERIALIZED (SELECT a, b FROM u), d AS (SELECT * FROM v) INSERT INTO t SELECT * FROM c").
		Child(KindInsertStmt)
	with := ins.Child(KindWithClause)
	require.NotNil(t, with)
	assert.True(t, with.Has("RECURSIVE"))

	ctes := with.All(KindCommonTableExpression)
	require.Len(t, ctes, 2)
	assert.Equal(t, "c", ctes[0].Child(KindTableName).Name())
	assert.Equal(t, []string{"x", "y"}, names(ctes[0].All(KindColumnName)))
	assert.True(t, ctes[0].Has("NOT"))
	assert.True(t, ctes[0].Has("MATERIALIZED"))
	assert.False(t, ctes[1].Has("MATERIALIZED"))
	assert.NotNil(t, ctes[1].Child(KindSelectStmt))
}

func TestParse_UnknownStatement(t *testing.T) {
	stmt := mustParse(t, "DELETE FROM t WHERE a = 1")
	assert.Empty(t, stmt.Children)
	assert.Equal(t, "DELETE FROM t WHERE a = 1", stmt.Text())

	idx := mustParse(t, "CREATE INDEX i ON t(a)")
	assert.Empty(t, idx.Children)
}

func TestParse_Program(t *testing.T) {
	prog, err := Parse("CREATE TABLE t (a); ; INSERT INTO t VALUES (1);\nSELECT a FROM t;")
	require.NoError(t, err)
	require.Len(t, prog.Children, 3)
	assert.NotNil(t, prog.Children[0].Child(KindCreateTableStmt))
	assert.NotNil(t, prog.Children[1].Child(KindInsertStmt))
	assert.Equal(t, "SELECT a FROM t", prog.Children[2].Text())
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"only semicolons", ";;"},
		{"missing from", "SELECT a"},
		{"trailing comma", "SELECT a, FROM t"},
		{"qualified column", "SELECT t.a FROM t"},
		{"reserved table name", "SELECT a FROM select"},
		{"multi-row values", "INSERT INTO t VALUES (1), (2)"},
		{"empty column list", "INSERT INTO t () VALUES (1)"},
		{"missing row source", "INSERT INTO t"},
		{"with before select", "WITH c AS (SELECT a FROM t) SELECT a FROM c"},
		{"not without materialized", "WITH c AS NOT (SELECT a FROM t) INSERT INTO t SELECT a FROM c"},
		{"bad table option", "CREATE TABLE t (a) WITHOUT OIDS"},
		{"unclosed column list", "CREATE TABLE t (a"},
		{"junk after statement", "SELECT a FROM t junk more"},
		{"sign without number", "INSERT INTO t VALUES (-a)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.Equal(t, sqlerr.KindSyntax, sqlerr.KindOf(err), "got %v", err)
		})
	}
}

func TestParse_SyntaxErrorPosition(t *testing.T) {
	_, err := Parse("SELECT a FROM t WHERE a")
	require.Error(t, err)

	var se *sqlerr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 16, se.Pos)
	assert.Equal(t, "WHERE", se.Source)
}

func TestParseStatement_RejectsMultiple(t *testing.T) {
	_, err := ParseStatement("SELECT a FROM t; SELECT b FROM u")
	assert.True(t, sqlerr.Is(err, sqlerr.KindSyntax))
}
