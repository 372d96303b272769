package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbc/internal/store"
)

// compileInto runs the compile command against dbPath and returns its output.
func compileInto(t *testing.T, opts *RootOptions, sql string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{sql})
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompile_RequiresDatabase(t *testing.T) {
	out, err := compileInto(t, &RootOptions{Format: "text"}, "SELECT a FROM t")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
}

func TestCompile_SessionPersistsAcrossInvocations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")

	out, err := compileInto(t, &RootOptions{Format: "text", Database: dbPath}, "CREATE TABLE t (a, b INTEGER)")
	require.NoError(t, err)
	assert.Contains(t, out, "3|SetCookie|1|0|\n")
	assert.Contains(t, out, "✓ Compiled 1 statement(s) into "+dbPath)

	// The second invocation sees the table and cookie the first created.
	out, err = compileInto(t, &RootOptions{Format: "text", Database: dbPath}, "INSERT INTO t VALUES (1, 2)")
	require.NoError(t, err)
	assert.Contains(t, out, "1|VerifyCookie|1|0|\n")
	assert.Contains(t, out, "2|OpenWrite|0|0|t\n")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	programs, err := st.Programs(context.Background())
	require.NoError(t, err)
	require.Len(t, programs, 2)
	assert.Equal(t, "CREATE TABLE t (a, b INTEGER)", programs[0].Canonical)
	assert.Equal(t, "INSERT INTO t VALUES(1, 2)", programs[1].Canonical)

	cat, err := st.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), cat.SchemaCookie())
	_, ok := cat.LookupTable("main", "t")
	assert.True(t, ok)
}

func TestCompile_TableExistsInLaterSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")

	_, err := compileInto(t, &RootOptions{Format: "text", Database: dbPath}, "CREATE TABLE t (a)")
	require.NoError(t, err)

	out, err := compileInto(t, &RootOptions{Format: "json", Database: dbPath}, "CREATE TABLE t (b)")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TABLE_EXISTS", resp.Error.Code)
}

func TestCompile_TemporaryTablesAreNotPersisted(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")

	_, err := compileInto(t, &RootOptions{Format: "text", Database: dbPath},
		"CREATE TEMP TABLE scratch (x); INSERT INTO scratch VALUES (1)")
	require.NoError(t, err)

	// The temp table lasted one invocation.
	_, err = compileInto(t, &RootOptions{Format: "text", Database: dbPath}, "SELECT x FROM scratch")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompile_CUECatalogMergesWithSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")
	opts := func() *RootOptions {
		return &RootOptions{Format: "text", Database: dbPath, CatalogDir: shopCatalog}
	}

	out, err := compileInto(t, opts(), "CREATE TABLE notes (body TEXT)")
	require.NoError(t, err)
	assert.Contains(t, out, "1|VerifyCookie|12|0|\n")
	assert.Contains(t, out, "3|SetCookie|13|0|\n")

	out, err = compileInto(t, opts(), "SELECT body FROM notes; SELECT email FROM customers")
	require.NoError(t, err)
	assert.Contains(t, out, "0|VerifyCookie|13|0|\n")
	assert.Contains(t, out, "✓ Compiled 2 statement(s)")
}

func TestCompile_JSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")

	out, err := compileInto(t, &RootOptions{Format: "json", Database: dbPath}, "CREATE TABLE t (a)")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotContains(t, out, "✓ Compiled")
}
