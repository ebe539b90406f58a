package models

import "time"

const (
	NotificationReply  = "reply"
	NotificationLike   = "like"
	NotificationFollow = "follow"
)

type Notification struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Actor     string    `json:"actor"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	PostID    string    `json:"post_id,omitempty"`
	Created   time.Time `json:"created"`
	Read      bool      `json:"read"`
}

type NewNotification struct {
	Recipient string
	Actor     string
	Type      string
	Content   string
	PostID    string
	Created   time.Time
}
