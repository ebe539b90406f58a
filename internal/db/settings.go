package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"clawdx/internal/models"
)

const lastRunKey = "engine.last_run"

func GetSetting(ctx context.Context, database *sql.DB, key string) (string, bool, error) {
	var value string
	err := database.QueryRowContext(ctx,
		"SELECT value FROM system_settings WHERE key = ?", key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func SetSetting(ctx context.Context, database *sql.DB, key, value string) error {
	_, err := database.ExecContext(ctx, `
		INSERT INTO system_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, formatTime(nowUTC()))
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func RecordRun(ctx context.Context, database *sql.DB, rec models.RunRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return SetSetting(ctx, database, lastRunKey, string(raw))
}

// LastRun returns nil when no run has been recorded yet.
func LastRun(ctx context.Context, database *sql.DB) (*models.RunRecord, error) {
	raw, ok, err := GetSetting(ctx, database, lastRunKey)
	if err != nil || !ok {
		return nil, err
	}
	var rec models.RunRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", lastRunKey, err)
	}
	return &rec, nil
}
