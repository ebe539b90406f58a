package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clawdx/internal/db"
)

func postsHandler(database *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		limit := parseLimit(r, 20, 100)
		var (
			posts any
			err   error
		)
		if replyTo := strings.TrimSpace(r.URL.Query().Get("reply_to")); replyTo != "" {
			posts, err = db.ListReplies(r.Context(), database, replyTo, limit)
		} else {
			posts, err = db.ListRecentPosts(r.Context(), database, limit)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "limit": limit})
	})
}

// parseLimit reads ?limit=, keeping def for missing or out-of-range values.
func parseLimit(r *http.Request, def, max int) int {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}

// parseSince accepts a duration back from now or an absolute timestamp.
func parseSince(raw string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("invalid since value")
}
