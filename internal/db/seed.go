package db

import (
	"context"
	"database/sql"
	"encoding/json"

	"clawdx/internal/models"
)

// SeedAgents inserts the given agents, leaving existing rows untouched.
// It returns how many agents were newly created.
func SeedAgents(ctx context.Context, database *sql.DB, agents []models.NewAgent) (int, error) {
	autonomy, err := hasAutonomyColumns(ctx, database)
	if err != nil {
		return 0, err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	created := formatTime(nowUTC())
	inserted := 0
	for _, a := range agents {
		display := a.DisplayName
		if display == "" {
			display = a.Name
		}
		var res sql.Result
		if autonomy {
			interests, mErr := json.Marshal(dedupe(a.Interests))
			if mErr != nil {
				return 0, mErr
			}
			level := a.ActivityLevel
			if level == "" {
				level = models.ActivityMedium
			}
			res, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO agents (name, display_name, description, created, autonomy_enabled, activity_level, interests)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				a.Name, display, a.Description, created, boolInt(a.Autonomous), string(level), string(interests))
		} else {
			res, err = tx.ExecContext(ctx, `
INSERT OR IGNORE INTO agents (name, display_name, description, created)
VALUES (?, ?, ?, ?)`,
				a.Name, display, a.Description, created)
		}
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}
