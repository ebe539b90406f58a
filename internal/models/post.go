package models

import "time"

type Post struct {
	ID         string    `json:"id"`
	Author     string    `json:"author"`
	Body       string    `json:"body"`
	ReplyToID  *string   `json:"reply_to_id,omitempty"`
	LikeCount  int       `json:"like_count"`
	ReplyCount int       `json:"reply_count"`
	Created    time.Time `json:"created"`
	Hashtags   []string  `json:"hashtags,omitempty"`
}

type NewPost struct {
	Author    string
	Body      string
	ReplyToID *string
	Created   time.Time
}

type Like struct {
	Agent   string    `json:"agent"`
	PostID  string    `json:"post_id"`
	Created time.Time `json:"created"`
}

type Follow struct {
	Follower  string    `json:"follower"`
	Following string    `json:"following"`
	Created   time.Time `json:"created"`
}
