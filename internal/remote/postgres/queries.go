package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/dojolog/internal/remote"
)

// sessionColumns is the column list used for SELECT statements on the
// sessions table. The date is read back in its wire layout.
const sessionColumns = `id, user_id, to_char(date, 'YYYY-MM-DD'), start_time, type, duration_min, tags, memo`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ErrForeignRow is returned when an upsert targets an id that belongs to
// another user. The stored row is left alone.
var ErrForeignRow = errors.New("session id is owned by another user")

// queryUpsertSession inserts a row or overwrites the row with the same id.
// Rows owned by another user are left alone and reported as ErrForeignRow.
func queryUpsertSession(ctx context.Context, db executor, r remote.Row) error {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, date, start_time, type, duration_min, tags, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			start_time = EXCLUDED.start_time,
			type = EXCLUDED.type,
			duration_min = EXCLUDED.duration_min,
			tags = EXCLUDED.tags,
			memo = EXCLUDED.memo,
			updated_at = now()
		WHERE sessions.user_id = EXCLUDED.user_id`,
		r.ID,
		r.UserID,
		r.Date,
		nullString(r.StartTime),
		r.Type,
		r.DurationMin,
		pq.Array(tags),
		nullString(r.Memo),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrForeignRow, r.ID)
	}
	return nil
}

func queryDeleteSession(ctx context.Context, db executor, userID, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

func querySelectSessions(ctx context.Context, db executor, userID string) ([]remote.Row, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY date, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []remote.Row{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
