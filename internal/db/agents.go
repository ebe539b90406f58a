package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clawdx/internal/models"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrSelfFollow    = errors.New("agent cannot follow itself")
	// ErrNoAutonomySchema is returned by writes that need the v2 columns.
	ErrNoAutonomySchema = errors.New("autonomy columns not migrated")
)

const agentColumns = `name, display_name, description, is_active, post_count, follower_count, following_count,
created, last_active, autonomy_enabled, activity_level, interests, last_activity_at`

// Pre-autonomy databases report every agent as enabled at medium cadence,
// with last_active standing in for last_activity_at.
const agentColumnsCompat = `name, display_name, description, is_active, post_count, follower_count, following_count,
created, last_active, 1, 'medium', '[]', last_active`

func agentSelect(autonomy bool) string {
	if autonomy {
		return "SELECT " + agentColumns + " FROM agents"
	}
	return "SELECT " + agentColumnsCompat + " FROM agents"
}

func agentOrder(autonomy bool) string {
	if autonomy {
		return " ORDER BY last_activity_at ASC, name ASC"
	}
	return " ORDER BY last_active ASC, name ASC"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (models.Agent, error) {
	var (
		a            models.Agent
		isActive     int
		enabled      int
		level        string
		interests    string
		created      string
		lastActive   sql.NullString
		lastActivity sql.NullString
	)
	if err := row.Scan(
		&a.Name, &a.DisplayName, &a.Description, &isActive,
		&a.PostCount, &a.FollowerCount, &a.FollowingCount,
		&created, &lastActive, &enabled, &level, &interests, &lastActivity,
	); err != nil {
		return models.Agent{}, err
	}
	a.IsActive = isActive == 1
	a.AutonomyEnabled = enabled == 1
	a.ActivityLevel = models.ParseActivityLevel(level)

	var err error
	if a.Created, err = parseTime(created); err != nil {
		return models.Agent{}, err
	}
	if a.LastActivityAt, err = parseNullTime(lastActivity); err != nil {
		return models.Agent{}, err
	}
	a.Interests = decodeInterests(interests)
	return a, nil
}

// decodeInterests accepts a JSON array or a comma separated list. Anything
// else is treated as no interests rather than failing the whole snapshot.
func decodeInterests(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil
		}
	} else {
		out = strings.Split(raw, ",")
	}
	cleaned := make([]string, 0, len(out))
	for _, v := range out {
		if v = strings.TrimSpace(v); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

func CreateAgent(ctx context.Context, database *sql.DB, in models.NewAgent) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errors.New("name is required")
	}
	display := in.DisplayName
	if display == "" {
		display = name
	}
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return err
	}
	created := formatTime(nowUTC())

	if !autonomy {
		_, err = database.ExecContext(ctx, `
INSERT INTO agents (name, display_name, description, created) VALUES (?, ?, ?, ?)`,
			name, display, in.Description, created)
	} else {
		interests, mErr := json.Marshal(dedupe(in.Interests))
		if mErr != nil {
			return mErr
		}
		level := in.ActivityLevel
		if level == "" {
			level = models.ActivityMedium
		}
		_, err = database.ExecContext(ctx, `
INSERT INTO agents (name, display_name, description, created, autonomy_enabled, activity_level, interests)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			name, display, in.Description, created, boolInt(in.Autonomous), string(level), string(interests))
	}
	if err != nil {
		if isUniqueConstraint(err) {
			return fmt.Errorf("agent %q: %w", name, ErrAlreadyExists)
		}
		return err
	}
	return nil
}

func GetAgent(ctx context.Context, database *sql.DB, name string) (*models.Agent, error) {
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return nil, err
	}
	a, err := scanAgent(database.QueryRowContext(ctx, agentSelect(autonomy)+" WHERE name = ?", name))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func ListAgents(ctx context.Context, database *sql.DB) ([]models.Agent, error) {
	return listAgents(ctx, database, "")
}

// ListActiveAgents returns the agents a run considers, least recently active
// first. Agents with autonomy disabled are included so the gate can report
// them and so they remain follow targets.
func ListActiveAgents(ctx context.Context, database *sql.DB) ([]models.Agent, error) {
	return listAgents(ctx, database, "is_active = 1")
}

func listAgents(ctx context.Context, database *sql.DB, where string) ([]models.Agent, error) {
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return nil, err
	}
	query := agentSelect(autonomy)
	if where != "" {
		query += " WHERE " + where
	}
	query += agentOrder(autonomy)

	rows, err := database.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]models.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// HasAutonomySchema reports whether the optional autonomy columns exist.
func HasAutonomySchema(ctx context.Context, database *sql.DB) (bool, error) {
	return hasAutonomyColumns(ctx, database)
}

func SetAutonomy(ctx context.Context, database *sql.DB, name string, enabled bool) error {
	return updateAgentColumn(ctx, database, name, "autonomy_enabled", boolInt(enabled))
}

func SetActivityLevel(ctx context.Context, database *sql.DB, name string, level models.ActivityLevel) error {
	switch level {
	case models.ActivityLow, models.ActivityMedium, models.ActivityHigh:
	default:
		return fmt.Errorf("invalid activity level %q", level)
	}
	return updateAgentColumn(ctx, database, name, "activity_level", string(level))
}

func SetInterests(ctx context.Context, database *sql.DB, name string, interests []string) error {
	raw, err := json.Marshal(dedupe(interests))
	if err != nil {
		return err
	}
	return updateAgentColumn(ctx, database, name, "interests", string(raw))
}

func updateAgentColumn(ctx context.Context, database *sql.DB, name, column string, value any) error {
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return err
	}
	if !autonomy {
		return ErrNoAutonomySchema
	}
	res, err := database.ExecContext(ctx, `UPDATE agents SET `+column+` = ? WHERE name = ?`, value, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RecordActivity refreshes the agent's activity timestamp and counters after a
// successful action. The timestamp write is a compare-and-swap on the value
// observed when the action was decided; swapped is false when another run got
// there first, in which case only the counters are updated.
func RecordActivity(ctx context.Context, database *sql.DB, upd models.ActivityUpdate) (bool, error) {
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return false, err
	}
	guardColumn := "last_active"
	if autonomy {
		guardColumn = "last_activity_at"
	}

	var previous any
	if upd.Previous != nil {
		previous = formatTime(*upd.Previous)
	}
	at := formatTime(upd.At)

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	set := "last_active = ?, post_count = post_count + ?"
	args := []any{at, upd.PostDelta}
	if autonomy {
		set += ", last_activity_at = ?"
		args = append(args, at)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE agents SET `+set+` WHERE name = ? AND `+guardColumn+` IS ?`,
		append(args, upd.Agent, previous)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	swapped := n == 1
	if !swapped {
		res, err = tx.ExecContext(ctx,
			`UPDATE agents SET post_count = post_count + ? WHERE name = ?`,
			upd.PostDelta, upd.Agent)
		if err != nil {
			return false, err
		}
		if n, err = res.RowsAffected(); err != nil {
			return false, err
		}
		if n == 0 {
			return false, sql.ErrNoRows
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return swapped, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func isUniqueConstraint(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "primary key")
}
