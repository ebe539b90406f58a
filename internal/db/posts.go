package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"clawdx/internal/models"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags returns the lower-cased, de-duplicated tags in body in order
// of first appearance.
func ExtractHashtags(body string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(body, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.ToLower(m[1]))
	}
	return dedupe(tags)
}

func CreatePost(ctx context.Context, database *sql.DB, in models.NewPost) (*models.Post, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, errors.New("body is required")
	}
	created := in.Created
	if created.IsZero() {
		created = nowUTC()
	}
	p := &models.Post{
		ID:        uuid.NewString(),
		Author:    in.Author,
		Body:      in.Body,
		ReplyToID: in.ReplyToID,
		Created:   created.UTC(),
		Hashtags:  ExtractHashtags(in.Body),
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO posts (id, author, body, reply_to_id, created)
VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Author, p.Body, p.ReplyToID, formatTime(p.Created)); err != nil {
		return nil, err
	}
	for _, tag := range p.Hashtags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO hashtags (post_id, tag) VALUES (?, ?)`,
			p.ID, tag,
		); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// IncrementReplyCount bumps the reply counter of postID by one.
func IncrementReplyCount(ctx context.Context, database *sql.DB, postID string) error {
	res, err := database.ExecContext(ctx,
		`UPDATE posts SET reply_count = reply_count + 1 WHERE id = ?`, postID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func GetPost(ctx context.Context, database *sql.DB, id string) (*models.Post, error) {
	posts, err := queryPosts(ctx, database, postSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, sql.ErrNoRows
	}
	return &posts[0], nil
}

// ListRecentPosts returns the newest posts, replies included.
func ListRecentPosts(ctx context.Context, database *sql.DB, limit int) ([]models.Post, error) {
	return queryPosts(ctx, database, postSelect+`
ORDER BY created DESC, id ASC
LIMIT ?`, limit)
}

// ListRepliedPosts returns the newest posts that have at least one reply.
func ListRepliedPosts(ctx context.Context, database *sql.DB, limit int) ([]models.Post, error) {
	return queryPosts(ctx, database, postSelect+`
WHERE reply_count > 0
ORDER BY created DESC, id ASC
LIMIT ?`, limit)
}

func ListRepliedPostsByAuthor(ctx context.Context, database *sql.DB, author string, limit int) ([]models.Post, error) {
	return queryPosts(ctx, database, postSelect+`
WHERE author = ? AND reply_count > 0
ORDER BY created DESC, id ASC
LIMIT ?`, author, limit)
}

// ListReplies returns the newest direct replies to postID.
func ListReplies(ctx context.Context, database *sql.DB, postID string, limit int) ([]models.Post, error) {
	return queryPosts(ctx, database, postSelect+`
WHERE reply_to_id = ?
ORDER BY created DESC, id ASC
LIMIT ?`, postID, limit)
}

const postSelect = `
SELECT id, author, body, reply_to_id, like_count, reply_count, created
FROM posts`

func queryPosts(ctx context.Context, database *sql.DB, query string, args ...any) ([]models.Post, error) {
	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Post, 0)
	for rows.Next() {
		var (
			p       models.Post
			created string
		)
		if err := rows.Scan(&p.ID, &p.Author, &p.Body, &p.ReplyToID, &p.LikeCount, &p.ReplyCount, &created); err != nil {
			return nil, err
		}
		if p.Created, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := attachHashtags(ctx, database, out); err != nil {
		return nil, err
	}
	return out, nil
}

func attachHashtags(ctx context.Context, database *sql.DB, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	index := make(map[string]int, len(posts))
	placeholders := make([]string, 0, len(posts))
	args := make([]any, 0, len(posts))
	for i, p := range posts {
		index[p.ID] = i
		placeholders = append(placeholders, "?")
		args = append(args, p.ID)
	}
	rows, err := database.QueryContext(ctx, `
SELECT post_id, tag FROM hashtags
WHERE post_id IN (`+strings.Join(placeholders, ",")+`)
ORDER BY post_id, tag`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID, tag string
		if err := rows.Scan(&postID, &tag); err != nil {
			return err
		}
		if i, ok := index[postID]; ok {
			posts[i].Hashtags = append(posts[i].Hashtags, tag)
		}
	}
	return rows.Err()
}
