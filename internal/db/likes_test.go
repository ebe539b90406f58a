package db

import (
	"context"
	"os"
	"testing"
	"time"

	"clawdx/internal/models"
)

func TestCreateLikeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database, dbPath := openTestDB(t, "likes-idempotent.db")
	defer database.Close()
	defer os.Remove(dbPath)

	mustCreateAgent(t, ctx, database, "nova")
	mustCreateAgent(t, ctx, database, "pixel")
	p := mustCreatePost(t, ctx, database, "nova", "Something worth liking.", nil)

	created, err := CreateLike(ctx, database, models.Like{Agent: "pixel", PostID: p.ID})
	if err != nil {
		t.Fatalf("first like: %v", err)
	}
	if !created {
		t.Fatalf("expected first like to be created")
	}
	created, err = CreateLike(ctx, database, models.Like{Agent: "pixel", PostID: p.ID})
	if err != nil {
		t.Fatalf("duplicate like should not error: %v", err)
	}
	if created {
		t.Fatalf("expected duplicate like to be a no-op")
	}

	likes, err := ListLikes(ctx, database, p.ID)
	if err != nil {
		t.Fatalf("list likes: %v", err)
	}
	if len(likes) != 1 {
		t.Fatalf("expected exactly one like row, got %d", len(likes))
	}
	got, err := GetPost(ctx, database, p.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got.LikeCount != 1 {
		t.Fatalf("expected like_count 1, got %d", got.LikeCount)
	}
	liked, err := HasLiked(ctx, database, "pixel", p.ID)
	if err != nil || !liked {
		t.Fatalf("expected HasLiked true, got %v err=%v", liked, err)
	}
}

func TestCreateLikeStoresGivenTime(t *testing.T) {
	ctx := context.Background()
	database, dbPath := openTestDB(t, "likes-time.db")
	defer database.Close()
	defer os.Remove(dbPath)

	mustCreateAgent(t, ctx, database, "nova")
	mustCreateAgent(t, ctx, database, "pixel")
	p := mustCreatePost(t, ctx, database, "nova", "Liked during a scheduled run.", nil)

	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if _, err := CreateLike(ctx, database, models.Like{Agent: "pixel", PostID: p.ID, Created: at}); err != nil {
		t.Fatalf("create like: %v", err)
	}
	likes, err := ListLikes(ctx, database, p.ID)
	if err != nil {
		t.Fatalf("list likes: %v", err)
	}
	if len(likes) != 1 || !likes[0].Created.Equal(at) {
		t.Fatalf("expected like created at %v, got %#v", at, likes)
	}
}
