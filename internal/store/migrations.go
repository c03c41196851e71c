package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			scope TEXT NOT NULL DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Athlete profile (singleton row), the engine's reference inputs
		`CREATE TABLE IF NOT EXISTS athlete_profile (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			ftp_watts REAL NOT NULL DEFAULT 0,
			athlete_weight_kg REAL NOT NULL DEFAULT 0,
			bike_weight_kg REAL NOT NULL DEFAULT 0,
			max_hr REAL NOT NULL DEFAULT 0,
			resting_hr REAL NOT NULL DEFAULT 0,
			swim_css_seconds REAL NOT NULL DEFAULT 0,
			run_threshold_seconds REAL NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT 'manual',
			updated_at TEXT NOT NULL
		)`,

		// Field tests: one measurement each, newest wins per kind
		`CREATE TABLE IF NOT EXISTS field_tests (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			value REAL NOT NULL,
			distance_meters REAL,
			duration_seconds REAL,
			source TEXT NOT NULL DEFAULT 'manual',
			tested_at TEXT NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_field_tests_kind ON field_tests(kind, tested_at)`,

		// Prediction history
		`CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			race_type TEXT,
			total_seconds REAL NOT NULL,
			summary TEXT NOT NULL,
			computed_at TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_predictions_computed_at ON predictions(computed_at)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
