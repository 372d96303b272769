package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/store"
)

// TraceIDGenerator generates trace IDs for CLI responses.
// Implemented by UUIDv7TraceIDs (production) and testutil generators (tests).
type TraceIDGenerator interface {
	Generate() string
}

// UUIDv7TraceIDs generates time-ordered UUIDv7 trace IDs.
type UUIDv7TraceIDs struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7TraceIDs) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// readInput returns the SQL text from args, the --file flag or stdin,
// in that order of preference.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	var sql string
	switch {
	case len(args) > 0:
		sql = strings.Join(args, " ")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		sql = string(data)
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		sql = string(data)
	}
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", fmt.Errorf("no SQL given")
	}
	return sql, nil
}

// openStore opens the session database when one is configured.
func (o *RootOptions) openStore() (*store.Store, error) {
	if o.Database == "" {
		return nil, nil
	}
	return store.Open(o.Database, store.WithLogger(o.logger()))
}

// openCatalog builds the starting catalog: tables from the CUE catalog
// directory, then tables persisted in st that the directory does not
// declare. The schema cookie is the larger of the two.
func (o *RootOptions) openCatalog(ctx context.Context, st *store.Store) (*catalog.Memory, error) {
	cat := catalog.NewMemory()
	if o.CatalogDir != "" {
		loaded, err := catalog.LoadCUE(o.CatalogDir)
		if err != nil {
			return nil, err
		}
		cat = loaded
		o.logger().Debug("catalog loaded", "dir", o.CatalogDir, "tables", len(cat.Tables()))
	}
	if st == nil {
		return cat, nil
	}

	stored, err := st.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	cookie := max(cat.SchemaCookie(), stored.SchemaCookie())
	for _, t := range stored.Tables() {
		if _, ok := cat.LookupTable(t.Schema, t.Name); ok {
			continue
		}
		if err := cat.AddTable(t); err != nil {
			return nil, err
		}
	}
	cat.SetSchemaCookie(cookie)
	o.logger().Debug("session catalog loaded", "db", o.Database, "tables", len(stored.Tables()), "cookie", cookie)
	return cat, nil
}
