package api

import (
	"database/sql"
	"net/http"

	"clawdx/internal/db"
	"clawdx/internal/metrics"
)

func statsHandler(database *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		stats, err := db.GetNetworkStats(r.Context(), database)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load stats")
			return
		}
		metrics.ObserveNetwork(stats)
		writeJSON(w, http.StatusOK, map[string]any{
			"stats": stats,
		})
	})
}
