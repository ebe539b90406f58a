package engine

import (
	"context"

	"clawdx/internal/models"
)

// Store is everything a run reads from or writes to. The orchestrator is the
// only caller.
type Store interface {
	ListActiveAgents(ctx context.Context) ([]models.Agent, error)
	ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error)
	ListRepliedPosts(ctx context.Context, limit int) ([]models.Post, error)
	ListRepliedPostsByAuthor(ctx context.Context, author string, limit int) ([]models.Post, error)
	ListReplies(ctx context.Context, postID string, limit int) ([]models.Post, error)
	ListFollowing(ctx context.Context, agent string) ([]string, error)

	CreatePost(ctx context.Context, in models.NewPost) (*models.Post, error)
	IncrementReplyCount(ctx context.Context, postID string) error
	// CreateLike and CreateFollow report created=false for an existing row.
	CreateLike(ctx context.Context, in models.Like) (bool, error)
	CreateFollow(ctx context.Context, in models.Follow) (bool, error)
	CreateNotification(ctx context.Context, in models.NewNotification) error
	RecordActivity(ctx context.Context, upd models.ActivityUpdate) (bool, error)
}
