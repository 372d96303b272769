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

var shopCatalog = filepath.Join("..", "harness", "testdata", "catalogs", "shop")

func TestExplain_SchemaFlow(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewExplainCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"CREATE TABLE t (a, b INTEGER); INSERT INTO t (b) VALUES (5)"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "Input: CREATE TABLE t (a, b INTEGER); INSERT INTO t (b) VALUES (5)\n"+
		"-- 1: CREATE TABLE t (a, b INTEGER)\n"+
		"0|Transaction|0|0|\n"+
		"1|VerifyCookie|0|0|\n"+
		"2|CreateTable|0|0|t|(a, b INTEGER)\n"+
		"3|SetCookie|1|0|\n"+
		"4|Commit|0|0|\n"+
		"-- 2: INSERT INTO t (b) VALUES(5)\n"+
		"0|Transaction|0|0|\n"+
		"1|VerifyCookie|1|0|\n"+
		"2|OpenWrite|0|0|t\n"+
		"3|NewRecno|0|1|\n"+
		"4|Integer|5|3|\n"+
		"5|Null|0|2|\n"+
		"6|MakeRecord|2|2||4\n"+
		"7|PutIntKey|0|4||1\n"+
		"8|Close|0|0|\n"+
		"9|Commit|0|0|\n",
		buf.String())
}

func TestExplain_CUECatalog(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewExplainCommand(&RootOptions{Format: "text", CatalogDir: shopCatalog})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"SELECT email FROM customers"})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "-- 1: SELECT email FROM customers\n")
	assert.Contains(t, out, "0|VerifyCookie|12|0|\n")
	assert.Contains(t, out, "|OpenRead|0|0|customers\n")
}

func TestExplain_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewExplainCommand(&RootOptions{Format: "json", CatalogDir: shopCatalog})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"SELECT * FROM tags"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Input      string `json:"input"`
			Statements []struct {
				Index       int             `json:"index"`
				Canonical   string          `json:"canonical"`
				StatementID string          `json:"statement_id"`
				ProgramID   string          `json:"program_id"`
				Program     json.RawMessage `json:"program"`
			} `json:"statements"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "SELECT * FROM tags", resp.Data.Input)
	require.Len(t, resp.Data.Statements, 1)

	stmt := resp.Data.Statements[0]
	assert.Equal(t, "SELECT * FROM tags", stmt.Canonical)
	assert.Len(t, stmt.ProgramID, 64)
	assert.NotEqual(t, stmt.StatementID, stmt.ProgramID)
	assert.Contains(t, string(stmt.Program), "VerifyCookie")
}

func TestExplain_UnresolvedTable(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewExplainCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"INSERT INTO missing (a) VALUES (1); SELECT a FROM missing"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNRESOLVED_REFERENCE", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "statement 2:")
}

func TestExplain_DoesNotPersist(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "session.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cmd := NewExplainCommand(&RootOptions{Format: "text", Database: dbPath})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"CREATE TABLE t (a)"})
	require.NoError(t, cmd.Execute())

	st, err = store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	programs, err := st.Programs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, programs)

	cat, err := st.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cat.Tables())
}
