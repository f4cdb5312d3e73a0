package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/dojolog/internal/remote"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanRow scans a single row in sessionColumns order.
func scanRow(row scannable) (remote.Row, error) {
	var (
		r         remote.Row
		startTime sql.NullString
		memo      sql.NullString
		tags      []string
	)
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Date,
		&startTime,
		&r.Type,
		&r.DurationMin,
		pq.Array(&tags),
		&memo,
	)
	if err != nil {
		return remote.Row{}, err
	}
	if startTime.Valid {
		s := startTime.String
		r.StartTime = &s
	}
	if memo.Valid {
		s := memo.String
		r.Memo = &s
	}
	if tags == nil {
		tags = []string{}
	}
	r.Tags = tags
	return r, nil
}

// nullString converts an optional string to sql.NullString.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// SQLSTATE codes that mean the sessions table is missing or has the wrong shape.
const (
	codeUndefinedTable  = "42P01"
	codeUndefinedColumn = "42703"
)

// classify wraps err for op, marking schema problems with remote.ErrSchema.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUndefinedTable, codeUndefinedColumn:
			return fmt.Errorf("%s: %w: %w", op, remote.ErrSchema, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
