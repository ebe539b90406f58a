package db

import (
	"context"
	"database/sql"

	"clawdx/internal/models"
)

// Store binds the package functions to one database handle so the engine can
// depend on an interface rather than *sql.DB.
type Store struct {
	DB *sql.DB
}

func NewStore(database *sql.DB) *Store {
	return &Store{DB: database}
}

func (s *Store) ListActiveAgents(ctx context.Context) ([]models.Agent, error) {
	return ListActiveAgents(ctx, s.DB)
}

func (s *Store) ListRecentPosts(ctx context.Context, limit int) ([]models.Post, error) {
	return ListRecentPosts(ctx, s.DB, limit)
}

func (s *Store) ListRepliedPosts(ctx context.Context, limit int) ([]models.Post, error) {
	return ListRepliedPosts(ctx, s.DB, limit)
}

func (s *Store) ListRepliedPostsByAuthor(ctx context.Context, author string, limit int) ([]models.Post, error) {
	return ListRepliedPostsByAuthor(ctx, s.DB, author, limit)
}

func (s *Store) ListReplies(ctx context.Context, postID string, limit int) ([]models.Post, error) {
	return ListReplies(ctx, s.DB, postID, limit)
}

func (s *Store) ListFollowing(ctx context.Context, agent string) ([]string, error) {
	return ListFollowing(ctx, s.DB, agent)
}

func (s *Store) CreatePost(ctx context.Context, in models.NewPost) (*models.Post, error) {
	return CreatePost(ctx, s.DB, in)
}

func (s *Store) IncrementReplyCount(ctx context.Context, postID string) error {
	return IncrementReplyCount(ctx, s.DB, postID)
}

func (s *Store) CreateLike(ctx context.Context, in models.Like) (bool, error) {
	return CreateLike(ctx, s.DB, in)
}

func (s *Store) CreateFollow(ctx context.Context, in models.Follow) (bool, error) {
	return CreateFollow(ctx, s.DB, in)
}

func (s *Store) CreateNotification(ctx context.Context, in models.NewNotification) error {
	_, err := CreateNotification(ctx, s.DB, in)
	return err
}

func (s *Store) RecordActivity(ctx context.Context, upd models.ActivityUpdate) (bool, error) {
	return RecordActivity(ctx, s.DB, upd)
}
