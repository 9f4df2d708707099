package store

import (
	"database/sql"

	"github.com/ayusman/posturelab/internal/detector"
)

// LandmarkRepository stores the raw pose behind each assessment.
type LandmarkRepository struct {
	db *sql.DB
}

// Landmarks returns the landmark repository for this store.
func (s *Store) Landmarks() *LandmarkRepository {
	return &LandmarkRepository{db: s.db}
}

// Save replaces the landmarks stored for an assessment.
func (r *LandmarkRepository) Save(assessmentID string, landmarks []detector.Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM assessment_landmarks WHERE assessment_id = ?`, assessmentID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO assessment_landmarks (assessment_id, landmark_index, x, y, z, visibility)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range landmarks {
		if _, err := stmt.Exec(assessmentID, i, l.X, l.Y, l.Z, l.Visibility); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get returns the landmarks of an assessment in index order.
// It returns ErrNotFound when none were stored.
func (r *LandmarkRepository) Get(assessmentID string) ([]detector.Landmark, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z, visibility FROM assessment_landmarks
		 WHERE assessment_id = ? ORDER BY landmark_index`,
		assessmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []detector.Landmark
	for rows.Next() {
		var l detector.Landmark
		if err := rows.Scan(&l.X, &l.Y, &l.Z, &l.Visibility); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(landmarks) == 0 {
		return nil, ErrNotFound
	}

	return landmarks, nil
}
