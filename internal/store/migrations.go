package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Assessments table - one row per archived analysis
		`CREATE TABLE IF NOT EXISTS assessments (
			id TEXT PRIMARY KEY,
			view_type TEXT NOT NULL CHECK(view_type IN ('frontal', 'lateral')),
			overall_score INTEGER NOT NULL CHECK(overall_score BETWEEN 0 AND 100),
			overall_status TEXT NOT NULL CHECK(overall_status IN ('good', 'moderate', 'poor')),
			note TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Assessment metrics table - the four measured angles in display order
		`CREATE TABLE IF NOT EXISTS assessment_metrics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			assessment_id TEXT NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			key TEXT NOT NULL,
			label TEXT NOT NULL,
			value REAL NOT NULL,
			status TEXT NOT NULL,
			description TEXT NOT NULL,
			recommendation TEXT NOT NULL
		)`,

		// Assessment landmarks table - the raw pose an assessment was computed from
		`CREATE TABLE IF NOT EXISTS assessment_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			assessment_id TEXT NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			visibility REAL NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_assessment_metrics_assessment_id ON assessment_metrics(assessment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assessment_landmarks_assessment_id ON assessment_landmarks(assessment_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
