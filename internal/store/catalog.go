package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/sqlbc/internal/catalog"
	"github.com/roach88/sqlbc/internal/ir"
)

const metaSchemaCookie = "schema_cookie"

// SaveTable records a table definition. Temporary tables are skipped and
// an already stored table is left unchanged (ON CONFLICT DO NOTHING).
func (s *Store) SaveTable(ctx context.Context, t catalog.Table) error {
	if t.Temporary {
		s.logger.Debug("skipping temporary table", "table", t.Qualified())
		return nil
	}
	cols, err := marshalColumns(t.Columns)
	if err != nil {
		return fmt.Errorf("save table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalog_tables (table_key, schema_name, name, columns, options)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_key) DO NOTHING
	`,
		catalog.Fold(t.Schema)+"."+catalog.Fold(t.Name),
		t.Schema,
		t.Name,
		cols,
		int64(t.Options),
	)
	if err != nil {
		return fmt.Errorf("save table: %w", err)
	}
	s.logger.Debug("table saved", "table", t.Qualified())
	return nil
}

// SetSchemaCookie records the current schema cookie.
func (s *Store) SetSchemaCookie(ctx context.Context, cookie int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metaSchemaCookie, cookie)
	if err != nil {
		return fmt.Errorf("set schema cookie: %w", err)
	}
	return nil
}

// LoadCatalog rebuilds the stored catalog. An empty database yields an
// empty catalog at cookie 0.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, name, columns, options
		FROM catalog_tables
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	m := catalog.NewMemory()
	for rows.Next() {
		var (
			t       catalog.Table
			cols    string
			options int64
		)
		if err := rows.Scan(&t.Schema, &t.Name, &cols, &options); err != nil {
			return nil, fmt.Errorf("load catalog: scan: %w", err)
		}
		if t.Columns, err = unmarshalColumns(cols); err != nil {
			return nil, fmt.Errorf("load catalog: table %s: %w", t.Name, err)
		}
		t.Options = ir.TableOptions(options)
		if err := m.AddTable(t); err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var cookie int64
	err = s.db.QueryRowContext(ctx,
		`SELECT COALESCE((SELECT value FROM catalog_meta WHERE key = ?), 0)`,
		metaSchemaCookie,
	).Scan(&cookie)
	if err != nil {
		return nil, fmt.Errorf("load catalog: cookie: %w", err)
	}
	m.SetSchemaCookie(cookie)

	s.logger.Debug("catalog loaded", "tables", len(m.Tables()), "cookie", cookie)
	return m, nil
}

// marshalColumns converts columns to JSON TEXT for storage.
// HTML escaping is disabled so names are stored as written.
func marshalColumns(cols []catalog.Column) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cols); err != nil {
		return "", fmt.Errorf("marshal columns: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func unmarshalColumns(data string) ([]catalog.Column, error) {
	var cols []catalog.Column
	if err := json.Unmarshal([]byte(data), &cols); err != nil {
		return nil, fmt.Errorf("unmarshal columns: %w", err)
	}
	return cols, nil
}
