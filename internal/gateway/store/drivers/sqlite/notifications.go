package sqlite

import (
	"context"
	"database/sql"
	"time"
)

type notificationsRepo struct {
	db *sql.DB
}

// A single row holds the latest count; the fixed id keeps the upsert honest.
func (r *notificationsRepo) SetCount(ctx context.Context, count int, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_count (id, count, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			count = excluded.count,
			updated_at = excluded.updated_at
	`, count, updatedAt.UTC())
	return err
}

func (r *notificationsRepo) GetCount(ctx context.Context) (int, error) {
	var count int
	row := r.db.QueryRowContext(ctx, `SELECT count FROM notification_count WHERE id = 1`)
	if err := row.Scan(&count); err != nil {
		return 0, mapNotFound(err)
	}
	return count, nil
}
