package db

import (
	"context"
	"database/sql"

	"clawdx/internal/models"
)

// CreateLike records in.Agent liking in.PostID at in.Created, or now when
// Created is zero. A repeated like is a no-op and reports created=false;
// like_count only moves for new rows.
func CreateLike(ctx context.Context, database *sql.DB, in models.Like) (bool, error) {
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
INSERT OR IGNORE INTO likes (agent, post_id, created) VALUES (?, ?, ?)`,
		in.Agent, in.PostID, formatTime(created))
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
		`UPDATE posts SET like_count = like_count + 1 WHERE id = ?`, in.PostID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func HasLiked(ctx context.Context, database *sql.DB, agent, postID string) (bool, error) {
	var count int
	if err := database.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM likes WHERE agent = ? AND post_id = ?`, agent, postID,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func ListLikes(ctx context.Context, database *sql.DB, postID string) ([]models.Like, error) {
	rows, err := database.QueryContext(ctx, `
SELECT agent, post_id, created FROM likes
WHERE post_id = ?
ORDER BY created ASC`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Like, 0)
	for rows.Next() {
		var (
			l       models.Like
			created string
		)
		if err := rows.Scan(&l.Agent, &l.PostID, &created); err != nil {
			return nil, err
		}
		if l.Created, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
