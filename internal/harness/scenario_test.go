package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, writeFile(path, content))
	return path
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/schema_flow.yaml")
	require.NoError(t, err)

	assert.Equal(t, "schema_flow", s.Name)
	assert.True(t, s.Golden)
	assert.Nil(t, s.Expect)
	assert.True(t, s.Expect.IsSuccess())
	require.Len(t, s.Assertions, 6)
	assert.Equal(t, AssertCanonical, s.Assertions[0].Type)
	assert.Equal(t, 1, s.Assertions[0].Statement)
}

func TestLoadScenario_ResolvesCatalogDir(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/cue_catalog.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "catalogs", "shop"), s.CatalogDir)
}

func TestLoadScenario_MissingCatalogDir(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: x
description: d
catalog_dir: nowhere
sql: "SELECT a FROM t"
expect:
  case: UNRESOLVED_REFERENCE
  statement: 1
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog directory not found")
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: x
description: d
sql: "SELECT 1 FROM t"
assertion:
  - type: idempotent_print
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsql: x\nexpect: {case: SYNTAX_ERROR}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nsql: x\nexpect: {case: SYNTAX_ERROR}\n",
			want: "description is required",
		},
		{
			name: "missing sql",
			yaml: "name: n\ndescription: d\nsql: '  '\nexpect: {case: SYNTAX_ERROR}\n",
			want: "sql is required",
		},
		{
			name: "no assertions on success",
			yaml: "name: n\ndescription: d\nsql: x\n",
			want: "assertions list is required",
		},
		{
			name: "unknown case",
			yaml: "name: n\ndescription: d\nsql: x\nexpect: {case: Failure}\n",
			want: `unknown case "Failure"`,
		},
		{
			name: "table without columns",
			yaml: "name: n\ndescription: d\nsql: x\ncatalog: {tables: [{name: t}]}\nexpect: {case: SYNTAX_ERROR}\n",
			want: "catalog.tables[0]: columns list is required",
		},
		{
			name: "unknown assertion type",
			yaml: "name: n\ndescription: d\nsql: x\nassertions: [{type: trace_contains}]\n",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "statement required",
			yaml: "name: n\ndescription: d\nsql: x\nassertions: [{type: canonical, text: x}]\n",
			want: "statement (1-based) is required for canonical",
		},
		{
			name: "unknown opcode",
			yaml: "name: n\ndescription: d\nsql: x\nassertions: [{type: opcodes, statement: 1, opcodes: [Goto]}]\n",
			want: `unknown opcode "Goto"`,
		},
		{
			name: "instruction needs line",
			yaml: "name: n\ndescription: d\nsql: x\nassertions: [{type: instruction, statement: 1}]\n",
			want: "line is required for instruction",
		},
		{
			name: "final catalog needs table",
			yaml: "name: n\ndescription: d\nsql: x\nassertions: [{type: final_catalog}]\n",
			want: "table is required for final_catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_GoldenOnly(t *testing.T) {
	s, err := ParseScenario([]byte("name: n\ndescription: d\nsql: x\ngolden: true\n"))
	require.NoError(t, err)
	assert.Empty(t, s.Assertions)
}

func TestTableSpec_Table(t *testing.T) {
	spec := TableSpec{
		Name:         "t",
		Columns:      []string{"a", " b  INTEGER ", "c VARCHAR(10)"},
		WithoutRowID: true,
		Strict:       true,
	}
	assert.Equal(t, catalog.Table{
		Name: "t",
		Columns: []catalog.Column{
			{Name: "a"},
			{Name: "b", TypeName: "INTEGER"},
			{Name: "c", TypeName: "VARCHAR(10)"},
		},
		Options: ir.OptionWithoutRowID | ir.OptionStrict,
	}, spec.Table())

	temp := TableSpec{Name: "x", Columns: []string{"y"}, Temporary: true}.Table()
	assert.Equal(t, catalog.SchemaTemp, temp.Schema)
	assert.True(t, temp.Temporary)
}
