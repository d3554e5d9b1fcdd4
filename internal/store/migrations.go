package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Profiles table - per-user gesture bindings and sensitivity
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			trigger_next TEXT NOT NULL DEFAULT 'double_blink',
			trigger_prev TEXT NOT NULL DEFAULT 'long_blink',
			sensitivity REAL NOT NULL DEFAULT 1.0,
			cooldown_ms INTEGER NOT NULL DEFAULT 1000,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Calibrations table - baseline and noise snapshots per profile
		`CREATE TABLE IF NOT EXISTS calibrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			left_ear REAL NOT NULL,
			right_ear REAL NOT NULL,
			yaw REAL NOT NULL,
			noise_left_ear REAL NOT NULL,
			noise_right_ear REAL NOT NULL,
			noise_diff REAL NOT NULL,
			noise_yaw REAL NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Trigger log table - every fired page-turn trigger
		`CREATE TABLE IF NOT EXISTS trigger_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT REFERENCES profiles(id) ON DELETE SET NULL,
			gesture TEXT NOT NULL,
			direction TEXT NOT NULL,
			fired_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_calibrations_profile_id ON calibrations(profile_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trigger_log_fired_at ON trigger_log(fired_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
