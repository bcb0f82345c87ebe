package store

import "fmt"

// migrations are applied in order; each runs once and bumps user_version.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS presets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		hue_min REAL NOT NULL CHECK(hue_min BETWEEN 0 AND 360),
		hue_max REAL NOT NULL CHECK(hue_max BETWEEN 0 AND 360),
		sat_min REAL NOT NULL CHECK(sat_min BETWEEN 0 AND 100),
		sat_max REAL NOT NULL CHECK(sat_max BETWEEN 0 AND 100),
		desaturate REAL NOT NULL DEFAULT 0 CHECK(desaturate BETWEEN 0 AND 100),
		highlight REAL NOT NULL DEFAULT 0 CHECK(highlight BETWEEN 0 AND 100),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// Settings table - stores application settings as key-value pairs
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_presets_created_at ON presets(created_at)`,
}

// runMigrations applies the migrations newer than the database's
// user_version.
func (s *Store) runMigrations() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}

	return nil
}
