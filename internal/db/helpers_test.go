package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"clawdx/internal/models"
)

func openTestDB(t *testing.T, name string) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	database, err := Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database, path
}

func mustCreateAgent(t *testing.T, ctx context.Context, database *sql.DB, name string) {
	t.Helper()
	if err := CreateAgent(ctx, database, models.NewAgent{Name: name, Autonomous: true}); err != nil {
		t.Fatalf("create agent %s: %v", name, err)
	}
}

// testClock hands out strictly increasing creation times so ordering
// assertions do not depend on wall-clock resolution.
var testClock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func mustCreatePost(t *testing.T, ctx context.Context, database *sql.DB, author, body string, replyTo *string) *models.Post {
	t.Helper()
	testClock = testClock.Add(time.Second)
	p, err := CreatePost(ctx, database, models.NewPost{Author: author, Body: body, ReplyToID: replyTo, Created: testClock})
	if err != nil {
		t.Fatalf("create post by %s: %v", author, err)
	}
	return p
}

func strPtr(v string) *string { return &v }
