package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"clawdx/internal/models"
)

// Notification previews shown to the recipient.
const (
	ReplyPreview  = "replied to your post"
	LikePreview   = "liked your post"
	FollowPreview = "started following you"
)

// ErrSelfNotification guards against notifying an agent about its own action.
var ErrSelfNotification = errors.New("notification recipient is the actor")

func CreateNotification(ctx context.Context, database *sql.DB, in models.NewNotification) (*models.Notification, error) {
	if in.Recipient == in.Actor {
		return nil, fmt.Errorf("%s: %w", in.Actor, ErrSelfNotification)
	}
	switch in.Type {
	case models.NotificationReply, models.NotificationLike, models.NotificationFollow:
	default:
		return nil, fmt.Errorf("invalid notification type %q", in.Type)
	}
	created := in.Created
	if created.IsZero() {
		created = nowUTC()
	}
	content := in.Content
	if content == "" {
		content = defaultPreview(in.Type)
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		Recipient: in.Recipient,
		Actor:     in.Actor,
		Type:      in.Type,
		Content:   content,
		PostID:    in.PostID,
		Created:   created.UTC(),
	}

	var postID any
	if n.PostID != "" {
		postID = n.PostID
	}
	if _, err := database.ExecContext(ctx, `
INSERT INTO notifications (id, recipient, actor, type, content, post_id, created, read)
VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		n.ID, n.Recipient, n.Actor, n.Type, n.Content, postID, formatTime(n.Created),
	); err != nil {
		return nil, err
	}
	return n, nil
}

func defaultPreview(kind string) string {
	switch kind {
	case models.NotificationReply:
		return ReplyPreview
	case models.NotificationLike:
		return LikePreview
	default:
		return FollowPreview
	}
}

func ListNotifications(ctx context.Context, database *sql.DB, recipient string, includeRead bool, limit int) ([]models.Notification, error) {
	query := `
SELECT id, recipient, actor, type, content, COALESCE(post_id, ''), created, read
FROM notifications
WHERE recipient = ?`
	args := []any{recipient}
	if !includeRead {
		query += " AND read = 0"
	}
	query += " ORDER BY created DESC LIMIT ?"
	args = append(args, limit)

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		var (
			n       models.Notification
			created string
			readInt int
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Actor, &n.Type, &n.Content, &n.PostID, &created, &readInt); err != nil {
			return nil, err
		}
		if n.Created, err = parseTime(created); err != nil {
			return nil, err
		}
		n.Read = readInt == 1
		out = append(out, n)
	}
	return out, rows.Err()
}

func MarkAllNotificationsRead(ctx context.Context, database *sql.DB, recipient string) (int64, error) {
	res, err := database.ExecContext(ctx, `
UPDATE notifications
SET read = 1
WHERE recipient = ? AND read = 0`, recipient)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
