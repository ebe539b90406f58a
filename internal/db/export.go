package db

import (
	"context"
	"database/sql"
	"time"

	"clawdx/internal/models"
)

type ExportOptions struct {
	Since *time.Time
}

// NetworkExport is a point-in-time JSON dump of the social graph.
type NetworkExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Agents     []models.Agent  `json:"agents"`
	Posts      []models.Post   `json:"posts"`
	Likes      []models.Like   `json:"likes"`
	Follows    []models.Follow `json:"follows"`
}

func ExportNetwork(ctx context.Context, database *sql.DB, opts ExportOptions) (*NetworkExport, error) {
	agents, err := ListAgents(ctx, database)
	if err != nil {
		return nil, err
	}

	since := ""
	if opts.Since != nil {
		since = formatTime(*opts.Since)
	}
	posts, err := queryPosts(ctx, database, postSelect+`
WHERE created >= ?
ORDER BY created ASC, id ASC`, since)
	if err != nil {
		return nil, err
	}
	likes, err := exportLikes(ctx, database, since)
	if err != nil {
		return nil, err
	}
	follows, err := ListFollows(ctx, database)
	if err != nil {
		return nil, err
	}
	if since != "" {
		kept := follows[:0]
		for _, f := range follows {
			if !f.Created.Before(*opts.Since) {
				kept = append(kept, f)
			}
		}
		follows = kept
	}

	return &NetworkExport{
		ExportedAt: nowUTC(),
		Agents:     agents,
		Posts:      posts,
		Likes:      likes,
		Follows:    follows,
	}, nil
}

func exportLikes(ctx context.Context, database *sql.DB, since string) ([]models.Like, error) {
	rows, err := database.QueryContext(ctx, `
SELECT agent, post_id, created FROM likes
WHERE created >= ?
ORDER BY created ASC, agent ASC`, since)
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
