// Package api serves a read-only view of the network and the engine's
// effect on it.
package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"clawdx/internal/auth"
	"clawdx/internal/db"
	"clawdx/internal/models"
	"clawdx/internal/ratelimit"
)

type Options struct {
	// TokenHash, when set, is the sha256 of the bearer token every /api/v1
	// route except status requires.
	TokenHash string
	// ReadsPerMinute bounds requests per client address; zero disables it.
	ReadsPerMinute int
	Logger         *zap.Logger
	Now            func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func NewRouter(database *sql.DB, version string, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	limiter := ratelimit.NewLimiter(opts.ReadsPerMinute, time.Minute)
	guarded := func(h http.Handler) http.Handler {
		return tokenMiddleware(opts.TokenHash, rateLimitMiddleware(limiter, opts, h))
	}

	mux.HandleFunc("/api/v1/status", statusHandler(database, version, opts))
	mux.Handle("/api/v1/stats", guarded(statsHandler(database)))
	mux.Handle("/api/v1/agents", guarded(agentsCollectionHandler(database)))
	mux.Handle("/api/v1/agents/", guarded(agentsScopedHandler(database, opts)))
	mux.Handle("/api/v1/posts", guarded(postsHandler(database)))
	mux.Handle("/api/v1/export", guarded(exportHandler(database, opts)))
	mux.Handle("/metrics", promhttp.Handler())
	return corsMiddleware(requestLogger(opts.Logger, mux))
}

func statusHandler(database *sql.DB, version string, opts Options) http.HandlerFunc {
	type statusResponse struct {
		Status        string `json:"status"`
		Version       string `json:"version"`
		SchemaVersion int    `json:"schema_version"`
		Autonomy      bool   `json:"autonomy_schema"`
		Timestamp     string `json:"timestamp"`

		LastRun *models.RunRecord `json:"last_run,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		if err := database.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		schema, err := db.SchemaVersion(r.Context(), database)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "schema unavailable")
			return
		}
		autonomy, err := db.HasAutonomySchema(r.Context(), database)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "schema unavailable")
			return
		}
		lastRun, err := db.LastRun(r.Context(), database)
		if err != nil {
			opts.Logger.Warn("read last run", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Status:        "ok",
			Version:       version,
			SchemaVersion: schema,
			Autonomy:      autonomy,
			Timestamp:     opts.now().Format(time.RFC3339),
			LastRun:       lastRun,
		})
	}
}

func pathTail(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// bearerHash returns the hash of the request's bearer token, "" when absent.
func bearerHash(r *http.Request) string {
	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return ""
	}
	return auth.HashToken(token)
}
