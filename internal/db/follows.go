package db

import (
	"context"
	"database/sql"
	"fmt"

	"clawdx/internal/models"
)

// CreateFollow adds the edge in.Follower -> in.Following and bumps both
// counters. Self-follows are rejected; an existing edge reports created=false.
// A zero Created is stamped with the current time.
func CreateFollow(ctx context.Context, database *sql.DB, in models.Follow) (bool, error) {
	if in.Follower == in.Following {
		return false, fmt.Errorf("%s: %w", in.Follower, ErrSelfFollow)
	}
	created := in.Created
	if created.IsZero() {
		created = nowUTC()
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO follows (follower, following, created) VALUES (?, ?, ?)`,
		in.Follower, in.Following, formatTime(created))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET following_count = following_count + 1 WHERE name = ?`, in.Follower); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE agents SET follower_count = follower_count + 1 WHERE name = ?`, in.Following); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ListFollowing returns the names follower already follows.
func ListFollowing(ctx context.Context, database *sql.DB, follower string) ([]string, error) {
	rows, err := database.QueryContext(ctx, `
SELECT following FROM follows
WHERE follower = ?
ORDER BY following ASC`, follower)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func ListFollows(ctx context.Context, database *sql.DB) ([]models.Follow, error) {
	rows, err := database.QueryContext(ctx, `
SELECT follower, following, created FROM follows
ORDER BY created ASC, follower ASC, following ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Follow, 0)
	for rows.Next() {
		var (
			f       models.Follow
			created string
		)
		if err := rows.Scan(&f.Follower, &f.Following, &created); err != nil {
			return nil, err
		}
		if f.Created, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
