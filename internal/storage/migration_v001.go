package storage

import "database/sql"

// migrateV001 creates the initial nclock schema: the namespaced key/value
// table that holds widget state and the alarm firing log. Every statement
// uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS firings (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			alarm_id TEXT NOT NULL,
			label    TEXT NOT NULL,
			ts       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_firings_ts       ON firings(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_firings_alarm_id ON firings(alarm_id)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// migrateV002 records the minute-granularity trigger key alongside each
// firing so a log entry can be matched to the dedup guard that produced it.
func migrateV002(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE firings ADD COLUMN trigger_key TEXT NOT NULL DEFAULT ''`,
		`CREATE INDEX IF NOT EXISTS idx_firings_trigger_key ON firings(trigger_key)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
