package db

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql:     initialSchemaV1,
	},
	{
		version: 2,
		name:    "agent_autonomy",
		sql:     autonomySchemaV2,
	},
}

// LatestVersion is the highest schema version known to this build.
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

func ApplyMigrations(database *sql.DB) error {
	return ApplyMigrationsTo(database, LatestVersion())
}

// ApplyMigrationsTo applies pending migrations up to and including target.
func ApplyMigrationsTo(database *sql.DB, target int) error {
	if target < 1 || target > LatestVersion() {
		return fmt.Errorf("unknown schema version %d (latest %d)", target, LatestVersion())
	}
	if _, err := database.Exec(`
CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	applied_at  TEXT NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	for _, m := range migrations {
		if m.version > target {
			break
		}
		applied, err := migrationApplied(database, m.version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}
		if err := applyMigration(database, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}

	return nil
}

// SchemaVersion reports the highest applied migration, 0 on a fresh database.
func SchemaVersion(ctx context.Context, database *sql.DB) (int, error) {
	var exists int
	if err := database.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	).Scan(&exists); err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}
	var version int
	if err := database.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func migrationApplied(database *sql.DB, version int) (bool, error) {
	var count int
	if err := database.QueryRow(
		"SELECT COUNT(1) FROM schema_version WHERE version = ?",
		version,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyMigration(database *sql.DB, m migration) error {
	tx, err := database.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.sql); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, formatTime(nowUTC()),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// hasAutonomyColumns inspects the agents table rather than schema_version so
// that databases migrated by other tooling are detected too.
func hasAutonomyColumns(ctx context.Context, q queryer) (bool, error) {
	rows, err := q.QueryContext(ctx, `PRAGMA table_info(agents)`)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		switch name {
		case "autonomy_enabled", "activity_level", "interests", "last_activity_at":
			found++
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return found == 4, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}
