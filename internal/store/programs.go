package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ProgramRecord is one compiled statement in the program log.
type ProgramRecord struct {
	ID              string `json:"id"`
	Seq             int64  `json:"seq"`
	StatementID     string `json:"statement_id"`
	Source          string `json:"source"`
	Canonical       string `json:"canonical"`
	Listing         string `json:"listing"`
	Instructions    string `json:"instructions"`
	CompilerVersion string `json:"compiler_version"`
	IRVersion       string `json:"ir_version"`
}

// RecordProgram appends a program to the log and returns its seq.
// Recording the same program ID twice is a no-op that returns the
// existing seq.
func (s *Store) RecordProgram(ctx context.Context, rec ProgramRecord) (int64, error) {
	if rec.ID == "" {
		return 0, fmt.Errorf("record program: id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO programs
		(id, seq, statement_id, source, canonical, listing, instructions, compiler_version, ir_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM programs), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.StatementID,
		rec.Source,
		rec.Canonical,
		rec.Listing,
		rec.Instructions,
		rec.CompilerVersion,
		rec.IRVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("record program: %w", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM programs WHERE id = ?`, rec.ID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("record program: %w", err)
	}
	s.logger.Debug("program recorded", "id", rec.ID, "seq", seq)
	return seq, nil
}

// Programs returns the program log in order.
func (s *Store) Programs(ctx context.Context) ([]ProgramRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, statement_id, source, canonical, listing, instructions, compiler_version, ir_version
		FROM programs
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var out []ProgramRecord
	for rows.Next() {
		rec, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("list programs: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ProgramByStatement returns the latest program compiled for a statement ID.
func (s *Store) ProgramByStatement(ctx context.Context, statementID string) (ProgramRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, statement_id, source, canonical, listing, instructions, compiler_version, ir_version
		FROM programs
		WHERE statement_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, statementID)
	rec, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProgramRecord{}, false, nil
	}
	if err != nil {
		return ProgramRecord{}, false, fmt.Errorf("program by statement: %w", err)
	}
	return rec, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgram(r rowScanner) (ProgramRecord, error) {
	var rec ProgramRecord
	err := r.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.StatementID,
		&rec.Source,
		&rec.Canonical,
		&rec.Listing,
		&rec.Instructions,
		&rec.CompilerVersion,
		&rec.IRVersion,
	)
	return rec, err
}
