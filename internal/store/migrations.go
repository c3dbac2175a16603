package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Recordings table - one row per recorded session
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			width REAL NOT NULL,
			height REAL NOT NULL,
			mirror INTEGER NOT NULL DEFAULT 1,
			frames INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Recording frames table - detector output and measured sample per frame
		`CREATE TABLE IF NOT EXISTS recording_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL DEFAULT 0,
			hands TEXT NOT NULL DEFAULT '[]',
			tracked INTEGER NOT NULL DEFAULT 0,
			mirror INTEGER NOT NULL DEFAULT 1,
			radius REAL NOT NULL DEFAULT 0,
			angle_degrees REAL NOT NULL DEFAULT 0,
			UNIQUE(recording_id, sequence)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_recording_frames_recording_id ON recording_frames(recording_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
