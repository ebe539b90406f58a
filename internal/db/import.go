package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"clawdx/internal/models"
)

// ImportResult counts what ImportNetwork wrote. Rows that already exist or
// reference something missing from both the export and the database are
// counted as skipped.
type ImportResult struct {
	Agents  int `json:"agents"`
	Posts   int `json:"posts"`
	Likes   int `json:"likes"`
	Follows int `json:"follows"`
	Skipped int `json:"skipped"`
}

func ImportFromPath(ctx context.Context, database *sql.DB, fromPath string) (*ImportResult, error) {
	b, err := os.ReadFile(fromPath)
	if err != nil {
		return nil, err
	}
	var payload NetworkExport
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("parse json export: %w", err)
	}
	return ImportNetwork(ctx, database, &payload)
}

// ImportNetwork loads an ExportNetwork dump into database in one transaction.
// Existing rows are left untouched.
func ImportNetwork(ctx context.Context, database *sql.DB, in *NetworkExport) (*ImportResult, error) {
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return nil, err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res := &ImportResult{}
	count := func(r sql.Result, n *int) error {
		affected, err := r.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			*n++
		} else {
			res.Skipped++
		}
		return nil
	}

	for _, a := range in.Agents {
		var lastActive sql.NullString
		if a.LastActivityAt != nil {
			lastActive = sql.NullString{String: formatTime(*a.LastActivityAt), Valid: true}
		}
		var r sql.Result
		if autonomy {
			interests, mErr := json.Marshal(dedupe(a.Interests))
			if mErr != nil {
				return nil, mErr
			}
			r, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO agents (name, display_name, description, is_active, post_count, follower_count, following_count,
	created, last_active, autonomy_enabled, activity_level, interests, last_activity_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.Name, a.DisplayName, a.Description, boolInt(a.IsActive), a.PostCount, a.FollowerCount, a.FollowingCount,
				formatTime(a.Created), lastActive, boolInt(a.AutonomyEnabled), string(models.ParseActivityLevel(string(a.ActivityLevel))), string(interests), lastActive)
		} else {
			r, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO agents (name, display_name, description, is_active, post_count, follower_count, following_count,
	created, last_active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.Name, a.DisplayName, a.Description, boolInt(a.IsActive), a.PostCount, a.FollowerCount, a.FollowingCount,
				formatTime(a.Created), lastActive)
		}
		if err != nil {
			return nil, fmt.Errorf("import agent %s: %w", a.Name, err)
		}
		if err := count(r, &res.Agents); err != nil {
			return nil, err
		}
	}

	// parents before replies
	posts := append(in.Posts[:0:0], in.Posts...)
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Created.Before(posts[j].Created) })
	for _, p := range posts {
		ok, err := existsTx(ctx, tx, `SELECT COUNT(1) FROM agents WHERE name = ?`, p.Author)
		if err != nil {
			return nil, err
		}
		if ok && p.ReplyToID != nil {
			ok, err = existsTx(ctx, tx, `SELECT COUNT(1) FROM posts WHERE id = ?`, *p.ReplyToID)
			if err != nil {
				return nil, err
			}
		}
		if !ok {
			res.Skipped++
			continue
		}
		r, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO posts (id, author, body, reply_to_id, like_count, reply_count, created)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Author, p.Body, p.ReplyToID, p.LikeCount, p.ReplyCount, formatTime(p.Created))
		if err != nil {
			return nil, fmt.Errorf("import post %s: %w", p.ID, err)
		}
		if err := count(r, &res.Posts); err != nil {
			return nil, err
		}
		for _, tag := range ExtractHashtags(p.Body) {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO hashtags (post_id, tag) VALUES (?, ?)`, p.ID, tag); err != nil {
				return nil, err
			}
		}
	}

	for _, l := range in.Likes {
		ok, err := existsTx(ctx, tx, `
SELECT COUNT(1) FROM agents a, posts p WHERE a.name = ? AND p.id = ?`, l.Agent, l.PostID)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Skipped++
			continue
		}
		r, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO likes (agent, post_id, created) VALUES (?, ?, ?)`,
			l.Agent, l.PostID, formatTime(l.Created))
		if err != nil {
			return nil, err
		}
		if err := count(r, &res.Likes); err != nil {
			return nil, err
		}
	}

	for _, f := range in.Follows {
		ok, err := existsTx(ctx, tx, `
SELECT COUNT(1) FROM agents a, agents b WHERE a.name = ? AND b.name = ?`, f.Follower, f.Following)
		if err != nil {
			return nil, err
		}
		if !ok || f.Follower == f.Following {
			res.Skipped++
			continue
		}
		r, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO follows (follower, following, created) VALUES (?, ?, ?)`,
			f.Follower, f.Following, formatTime(f.Created))
		if err != nil {
			return nil, err
		}
		if err := count(r, &res.Follows); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

func existsTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
