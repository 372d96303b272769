// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
)

// FixtureCookie is the schema cookie of the Catalog fixture.
const FixtureCookie = 7

// Catalog returns a fresh catalog holding:
//
//	main.t1(a, b INTEGER)
//	main.t2(c)
//	main.users(id INTEGER, email TEXT, name TEXT) STRICT
//	main.kv(k TEXT, v) WITHOUT ROWID
//	aux.log(msg)
//
// at schema cookie FixtureCookie.
func Catalog(t testing.TB) *catalog.Memory {
	t.Helper()

	m := catalog.NewMemory()
	tables := []catalog.Table{
		{Name: "t1", Columns: []catalog.Column{{Name: "a"}, {Name: "b", TypeName: "INTEGER"}}},
		{Name: "t2", Columns: []catalog.Column{{Name: "c"}}},
		{
			Name:    "users",
			Columns: []catalog.Column{{Name: "id", TypeName: "INTEGER"}, {Name: "email", TypeName: "TEXT"}, {Name: "name", TypeName: "TEXT"}},
			Options: ir.OptionStrict,
		},
		{
			Name:    "kv",
			Columns: []catalog.Column{{Name: "k", TypeName: "TEXT"}, {Name: "v"}},
			Options: ir.OptionWithoutRowID,
		},
		{Schema: "aux", Name: "log", Columns: []catalog.Column{{Name: "msg"}}},
	}
	for _, tbl := range tables {
		require.NoError(t, m.AddTable(tbl))
	}
	m.SetSchemaCookie(FixtureCookie)
	return m
}
