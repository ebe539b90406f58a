package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"clawdx/internal/db"
)

func agentsCollectionHandler(database *sql.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		agents, err := db.ListAgents(r.Context(), database)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list agents")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"agents": agents, "total": len(agents)})
	})
}

// agentsScopedHandler serves /api/v1/agents/activity, /api/v1/agents/{name}
// and /api/v1/agents/{name}/notifications.
func agentsScopedHandler(database *sql.DB, opts Options) http.Handler {
	activity := activityHandler(database, opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		tail := pathTail(r.URL.Path, "/api/v1/agents/")
		if tail == "activity" {
			activity.ServeHTTP(w, r)
			return
		}
		name, rest, _ := strings.Cut(tail, "/")
		if name == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		switch rest {
		case "":
			agentItem(w, r, database, name)
		case "notifications":
			agentNotifications(w, r, database, name)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	})
}

func agentItem(w http.ResponseWriter, r *http.Request, database *sql.DB, name string) {
	agent, err := db.GetAgent(r.Context(), database, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}
	following, err := db.ListFollowing(r.Context(), database, name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load follows")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent": agent, "following": following})
}

func agentNotifications(w http.ResponseWriter, r *http.Request, database *sql.DB, name string) {
	if _, err := db.GetAgent(r.Context(), database, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	limit := parseLimit(r, 20, 100)
	items, err := db.ListNotifications(r.Context(), database, name, all, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": items, "limit": limit})
}
