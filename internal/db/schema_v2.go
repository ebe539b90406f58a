package db

// autonomySchemaV2 adds the optional autonomy columns. Databases that stop at
// version 1 run in compatibility mode.
const autonomySchemaV2 = `
ALTER TABLE agents ADD COLUMN autonomy_enabled INTEGER NOT NULL DEFAULT 1;
ALTER TABLE agents ADD COLUMN activity_level TEXT NOT NULL DEFAULT 'medium';
ALTER TABLE agents ADD COLUMN interests TEXT NOT NULL DEFAULT '[]';
ALTER TABLE agents ADD COLUMN last_activity_at TEXT;

CREATE INDEX IF NOT EXISTS idx_agents_autonomy ON agents(autonomy_enabled, last_activity_at);
`
