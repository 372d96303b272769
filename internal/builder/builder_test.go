package builder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbc/internal/cst"
	"github.com/roach88/sqlbc/internal/ir"
	"github.com/roach88/sqlbc/internal/sqlerr"
)

func build(t *testing.T, sql string) ir.Statement {
	t.Helper()
	n, err := cst.ParseStatement(sql)
	require.NoError(t, err)
	stmt, err := BuildStatement(n)
	require.NoError(t, err)
	return stmt
}

func buildErr(t *testing.T, sql string) error {
	t.Helper()
	n, err := cst.ParseStatement(sql)
	require.NoError(t, err)
	_, err = BuildStatement(n)
	require.Error(t, err)
	return err
}

func TestBuild_SelectEndToEnd(t *testing.T) {
	got := build(t, "SELECT a, b AS x FROM t1, t2")

	want := ir.SelectStmt{
		Modifier: ir.ModifierNone,
		Projections: []ir.ResultColumn{
			ir.ExprColumn{Expr: ir.Col("a")},
			ir.ExprColumn{Expr: ir.Col("b"), Alias: "x"},
		},
		Sources: []ir.TableOrSubquery{
			ir.AliasedTable{Table: ir.Table{Name: "t1"}},
			ir.AliasedTable{Table: ir.Table{Name: "t2"}},
		},
	}
	assert.Equal(t, want, got)
}

func TestBuild_SelectModifier(t *testing.T) {
	tests := []struct {
		sql  string
		want ir.SelectModifier
	}{
		{"SELECT a FROM t", ir.ModifierNone},
		{"SELECT DISTINCT a FROM t", ir.ModifierDistinct},
		{"SELECT ALL a FROM t", ir.ModifierAll},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			got := build(t, tt.sql).(ir.SelectStmt)
			assert.Equal(t, tt.want, got.Modifier)
		})
	}
}

func TestBuild_ProjectionOrderPreserved(t *testing.T) {
	got := build(t, "SELECT c, *, a, t.*, b FROM t").(ir.SelectStmt)

	require.Len(t, got.Projections, 5)
	assert.Equal(t, ir.ExprColumn{Expr: ir.Col("c")}, got.Projections[0])
	assert.Equal(t, ir.StarColumn{}, got.Projections[1])
	assert.Equal(t, ir.ExprColumn{Expr: ir.Col("a")}, got.Projections[2])
	assert.Equal(t, ir.TableStarColumn{Table: "t"}, got.Projections[3])
	assert.Equal(t, ir.ExprColumn{Expr: ir.Col("b")}, got.Projections[4])
}

func TestBuild_AliasIsIdentifierText(t *testing.T) {
	got := build(t, `SELECT a AS x, b "quoted alias" FROM t AS u`).(ir.SelectStmt)

	assert.Equal(t, "x", got.Projections[0].(ir.ExprColumn).Alias)
	assert.Equal(t, "quoted alias", got.Projections[1].(ir.ExprColumn).Alias)
	assert.Equal(t, "u", got.Sources[0].(ir.AliasedTable).Alias)
}

func TestBuild_CreateTableEndToEnd(t *testing.T) {
	got := build(t, "CREATE TABLE IF NOT EXISTS s.t (a, b INTEGER)")

	want := ir.CreateTableStmt{
		IfNotExists: true,
		Table:       ir.Table{Name: "t", Schema: "s"},
		Columns: []ir.ColumnDef{
			{Name: "a"},
			{Name: "b", TypeName: "INTEGER"},
		},
	}
	assert.Equal(t, want, got)
}

func TestBuild_CreateTableFlagsAndOptions(t *testing.T) {
	got := build(t, "CREATE TEMPORARY TABLE t (a VARCHAR  (10), b) WITHOUT ROWID, STRICT").(ir.CreateTableStmt)

	assert.True(t, got.Temporary)
	assert.False(t, got.IfNotExists)
	assert.Equal(t, "VARCHAR(10)", got.Columns[0].TypeName)
	assert.Equal(t, ir.OptionWithoutRowID|ir.OptionStrict, got.Options)

	temp := build(t, "CREATE TEMP TABLE t (a)").(ir.CreateTableStmt)
	assert.True(t, temp.Temporary)
	assert.Zero(t, temp.Options)
}

func TestBuild_ColumnConstraintsUnsupported(t *testing.T) {
	for _, sql := range []string{
		"CREATE TABLE t (a INTEGER PRIMARY KEY)",
		"CREATE TABLE t (a NOT NULL)",
		"CREATE TABLE t (a, b TEXT DEFAULT 'x')",
		"CREATE TABLE t (a UNIQUE)",
	} {
		t.Run(sql, func(t *testing.T) {
			err := buildErr(t, sql)

			var se *sqlerr.Error
			require.ErrorAs(t, err, &se)
			assert.Equal(t, sqlerr.KindUnsupportedFeature, se.Kind)
			assert.Equal(t, "column constraints", se.Message)
			assert.Equal(t, sqlerr.PhaseParse, se.Phase)
		})
	}
}

func TestBuild_CreateTableAsSelectUnsupported(t *testing.T) {
	err := buildErr(t, "CREATE TABLE t AS SELECT a FROM u")
	assert.True(t, sqlerr.Is(err, sqlerr.KindUnsupportedFeature))
}

func TestBuild_InsertConflictDefaulting(t *testing.T) {
	got := build(t, "INSERT INTO t VALUES (1)").(ir.InsertStmt)

	assert.Equal(t, ir.Insert{Resolution: ir.ConflictUnspecified}, got.Operation)
	assert.Nil(t, got.With)
	assert.Nil(t, got.ColumnNames)
	assert.Equal(t, ir.ValuesList{Exprs: []ir.Expr{ir.Lit(ir.Integer(1))}}, got.Tuples)
}

func TestBuild_InsertConflictMethods(t *testing.T) {
	tests := []struct {
		sql  string
		want ir.ConflictResolution
	}{
		{"INSERT OR ABORT INTO t VALUES (1)", ir.ConflictAbort},
		{"INSERT OR FAIL INTO t VALUES (1)", ir.ConflictFail},
		{"INSERT OR IGNORE INTO t VALUES (1)", ir.ConflictIgnore},
		{"insert or replace into t values (1)", ir.ConflictReplace},
		{"INSERT OR ROLLBACK INTO t VALUES (1)", ir.ConflictRollback},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			got := build(t, tt.sql).(ir.InsertStmt)
			assert.Equal(t, ir.Insert{Resolution: tt.want}, got.Operation)
		})
	}
}

func TestBuild_Replace(t *testing.T) {
	got := build(t, "REPLACE INTO t (a) VALUES (1)").(ir.InsertStmt)
	assert.Equal(t, ir.Replace{}, got.Operation)
	assert.Equal(t, []string{"a"}, got.ColumnNames)
}

func TestBuild_ReplaceWithConflictClause(t *testing.T) {
	err := buildErr(t, "REPLACE OR IGNORE INTO t VALUES (1)")
	assert.Equal(t, sqlerr.KindConflictResolutionOnReplace, sqlerr.KindOf(err))
}

func TestBuild_UnknownConflictMethod(t *testing.T) {
	err := buildErr(t, "INSERT OR SKIP INTO t VALUES (1)")

	var se *sqlerr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sqlerr.KindUnknownConflictResolutionMethod, se.Kind)
	assert.Equal(t, "SKIP", se.Source)
}

func TestBuild_InsertRowSources(t *testing.T) {
	sel := build(t, "INSERT INTO t SELECT a FROM u").(ir.InsertStmt)
	assert.IsType(t, ir.SelectStmt{}, sel.Tuples)

	def := build(t, "INSERT INTO t DEFAULT VALUES").(ir.InsertStmt)
	assert.Equal(t, ir.DefaultValues{}, def.Tuples)
}

func TestBuild_InsertTableAndColumns(t *testing.T) {
	got := build(t, "INSERT INTO main.t AS x (b, a) VALUES (1, 2)").(ir.InsertStmt)

	assert.Equal(t, ir.AliasedTable{Table: ir.Table{Name: "t", Schema: "main"}, Alias: "x"}, got.Table)
	assert.Equal(t, []string{"b", "a"}, got.ColumnNames)
}

func TestBuild_Literals(t *testing.T) {
	got := build(t, "INSERT INTO t VALUES (a, 1, -2, 1.5, -2.5e3, 0x10, 'it''s', X'CAFE', NULL, 9223372036854775808, -9223372036854775808)").(ir.InsertStmt)

	want := []ir.Expr{
		ir.Col("a"),
		ir.Lit(ir.Integer(1)),
		ir.Lit(ir.Integer(-2)),
		ir.Lit(ir.Float(1.5)),
		ir.Lit(ir.Float(-2500)),
		ir.Lit(ir.Integer(16)),
		ir.Lit(ir.String("it's")),
		ir.Lit(ir.Blob{0xCA, 0xFE}),
		ir.Lit(ir.Null{}),
		ir.Lit(ir.Float(9223372036854775808)),
		ir.Lit(ir.Integer(math.MinInt64)),
	}
	assert.Equal(t, want, got.Tuples.(ir.ValuesList).Exprs)
}

func TestBuild_WithClause(t *testing.T) {
	got := build(t, "WITH RECURSIVE c(x) AS MATERIALIZED (SELECT a FROM u), d AS NOT MATERIALIZED (SELECT * FROM v), e AS (SELECT b FROM w) INSERT INTO t SELECT x FROM c").(ir.InsertStmt)

	require.NotNil(t, got.With)
	assert.True(t, got.With.Recursive)
	require.Len(t, got.With.CTEs, 3)

	assert.Equal(t, "c", got.With.CTEs[0].Name)
	assert.Equal(t, []string{"x"}, got.With.CTEs[0].ColumnNames)
	assert.Equal(t, ir.Materialized, got.With.CTEs[0].Materialized)
	assert.Nil(t, got.With.CTEs[1].ColumnNames)
	assert.Equal(t, ir.NotMaterialized, got.With.CTEs[1].Materialized)
	assert.Equal(t, ir.MaterializedNone, got.With.CTEs[2].Materialized)
	assert.Equal(t, []ir.ResultColumn{ir.StarColumn{}}, got.With.CTEs[1].Body.Projections)
}

func TestBuild_InvalidStatement(t *testing.T) {
	err := buildErr(t, "DELETE FROM t")

	var se *sqlerr.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, sqlerr.KindInvalidStatement, se.Kind)
	assert.Equal(t, "DELETE FROM t", se.Source)
	assert.Contains(t, se.Error(), "DELETE FROM t")
}

func TestBuildProgram_StopsAtFirstError(t *testing.T) {
	prog, err := cst.Parse("SELECT a FROM t; DROP TABLE t; SELECT b FROM t")
	require.NoError(t, err)

	stmts, err := BuildProgram(prog)
	assert.Nil(t, stmts)
	assert.True(t, sqlerr.Is(err, sqlerr.KindInvalidStatement))
	assert.Contains(t, err.Error(), "statement 2")
}

func TestBuildSQL(t *testing.T) {
	stmts, err := BuildSQL("CREATE TABLE t (a); INSERT INTO t VALUES (1); SELECT a FROM t")
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.IsType(t, ir.CreateTableStmt{}, stmts[0])
	assert.IsType(t, ir.InsertStmt{}, stmts[1])
	assert.IsType(t, ir.SelectStmt{}, stmts[2])

	_, err = BuildSQL("SELECT")
	assert.True(t, sqlerr.Is(err, sqlerr.KindSyntax))
}

func TestNumericLiteral(t *testing.T) {
	v, err := numericLiteral("0xFFFFFFFFFFFFFFFF", false)
	require.NoError(t, err)
	assert.Equal(t, ir.Integer(-1), v)

	_, err = numericLiteral("0x1FFFFFFFFFFFFFFFF", false)
	assert.True(t, sqlerr.Is(err, sqlerr.KindSyntax))
}

func TestNumericLiteral_OutOfRangeFloat(t *testing.T) {
	for _, text := range []string{"1e999", "1.5e400"} {
		_, err := numericLiteral(text, false)
		assert.True(t, sqlerr.Is(err, sqlerr.KindUnsupportedFeature), "%s: %v", text, err)
	}

	err := buildErr(t, "INSERT INTO t VALUES (-1e999)")
	assert.True(t, sqlerr.Is(err, sqlerr.KindUnsupportedFeature))
	assert.Contains(t, err.Error(), "non-finite float literal")
}

func TestBuild_TypeNameFromTerms(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{"CREATE TABLE t (a VARCHAR(10))", "VARCHAR(10)"},
		{"CREATE TABLE t (a VARCHAR ( 10 ))", "VARCHAR(10)"},
		{"CREATE TABLE t (a VARCHAR\n(10))", "VARCHAR(10)"},
		{"CREATE TABLE t (a DECIMAL(10,+2))", "DECIMAL(10, 2)"},
		{"CREATE TABLE t (a DECIMAL( 10 , - 2 ))", "DECIMAL(10, -2)"},
		{"CREATE TABLE t (a INT/*x*/EGER)", "INT EGER"},
		{"CREATE TABLE t (a VARCHAR -- note\n BIG)", "VARCHAR BIG"},
		{"CREATE TABLE t (a DOUBLE /* wide */ PRECISION)", "DOUBLE PRECISION"},
		{`CREATE TABLE t (a "my type")`, `"my type"`},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			got := build(t, tt.sql).(ir.CreateTableStmt)
			assert.Equal(t, tt.want, got.Columns[0].TypeName)
		})
	}
}

func TestBuild_TypeNameSpellingSharesStatementID(t *testing.T) {
	a, err := ir.StatementID(build(t, "CREATE TABLE t (a VARCHAR(10))"))
	require.NoError(t, err)
	b, err := ir.StatementID(build(t, "CREATE TABLE t (a VARCHAR /* size */ ( 10 ))"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
