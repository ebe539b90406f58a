package api

import (
	"database/sql"
	"net/http"
	"strings"

	"clawdx/internal/db"
)

func exportHandler(database *sql.DB, opts Options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		var exportOpts db.ExportOptions
		if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
			since, err := parseSince(raw, opts.now())
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			exportOpts.Since = &since
		}
		exported, err := db.ExportNetwork(r.Context(), database, exportOpts)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to export network")
			return
		}
		writeJSON(w, http.StatusOK, exported)
	})
}
