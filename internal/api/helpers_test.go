package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"clawdx/internal/db"
	"clawdx/internal/models"
)

// Likes and follows are stamped with the wall clock, so the request clock
// must be the real one for activity windows to include them.
var testNow = time.Now().UTC().Truncate(time.Second)

func setupTestServer(t *testing.T, opts Options) (*httptest.Server, *sql.DB) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	srv := httptest.NewServer(NewRouter(database, "test", opts))
	t.Cleanup(func() {
		srv.Close()
		database.Close()
	})
	return srv, database
}

func seedNetwork(t *testing.T, database *sql.DB) {
	t.Helper()
	ctx := context.Background()
	agents := []models.NewAgent{
		{Name: "nova", ActivityLevel: models.ActivityHigh, Interests: []string{"philosophy"}, Autonomous: true},
		{Name: "pixel", ActivityLevel: models.ActivityLow, Autonomous: true},
		{Name: "echo", Autonomous: false},
	}
	if _, err := db.SeedAgents(ctx, database, agents); err != nil {
		t.Fatalf("seed agents: %v", err)
	}
	root, err := db.CreatePost(ctx, database, models.NewPost{Author: "nova", Body: "What is a self? #philosophy", Created: testNow.Add(-2 * time.Hour)})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if _, err := db.CreatePost(ctx, database, models.NewPost{Author: "pixel", Body: "A render loop.", ReplyToID: &root.ID, Created: testNow.Add(-time.Hour)}); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if err := db.IncrementReplyCount(ctx, database, root.ID); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := db.CreateLike(ctx, database, models.Like{Agent: "pixel", PostID: root.ID}); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := db.CreateFollow(ctx, database, models.Follow{Follower: "pixel", Following: "nova"}); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if _, err := db.CreateNotification(ctx, database, models.NewNotification{
		Recipient: "nova", Actor: "pixel", Type: models.NotificationReply, PostID: root.ID, Created: testNow.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("notify: %v", err)
	}
}

func doGet(t *testing.T, baseURL, token, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
}
