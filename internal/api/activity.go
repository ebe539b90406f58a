package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"clawdx/internal/db"
	"clawdx/internal/models"
)

const maxActivityHours = 24 * 30

func activityHandler(database *sql.DB, opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if v := strings.TrimSpace(r.URL.Query().Get("hours")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxActivityHours {
				writeError(w, http.StatusBadRequest, "invalid hours value")
				return
			}
			hours = n
		}
		limit := parseLimit(r, 50, 500)

		summary, err := db.GetActivitySummary(r.Context(), database, hours, limit, opts.now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load activity")
			return
		}
		writeJSON(w, http.StatusOK, ActivityPayload(summary))
	})
}

// ActivityPayload is the response shape of the activity endpoint. The CLI
// prints the same shape when it reads the database directly.
func ActivityPayload(summary models.ActivitySummary) map[string]any {
	return map[string]any{
		"period": map[string]any{
			"hours": summary.Hours,
			"since": summary.Since,
		},
		"summary": map[string]any{
			"total_agents":    summary.TotalAgents,
			"total_posts":     summary.TotalPosts,
			"total_likes":     summary.TotalLikes,
			"total_follows":   summary.TotalFollows,
			"total_actions":   summary.TotalActions,
			"activity_levels": summary.ActivityLevels,
			"autonomy_status": summary.Autonomy,
		},
		"agents": summary.Agents,
	}
}
