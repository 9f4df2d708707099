package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/posturelab/internal/posture"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// Assessment is an archived posture analysis.
type Assessment struct {
	ID            string         `json:"id"`
	ViewType      string         `json:"viewType"`
	OverallScore  int            `json:"overallScore"`
	OverallStatus string         `json:"overallStatus"`
	Note          string         `json:"note"`
	Source        string         `json:"source"`
	Metrics       []MetricRecord `json:"metrics"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// MetricRecord is one archived metric.
type MetricRecord struct {
	Key            string  `json:"key"`
	Label          string  `json:"label"`
	Value          float64 `json:"value"`
	Status         string  `json:"status"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
}

// NewAssessment converts an analysis report into its archived form.
// source records where the pose came from, e.g. "upload" or "live".
func NewAssessment(r *posture.Report, source string) *Assessment {
	a := r.Analysis
	metrics := make([]MetricRecord, len(a.Metrics))
	for i, m := range a.Metrics {
		metrics[i] = MetricRecord{
			Key:            m.Key,
			Label:          m.Label,
			Value:          m.Value,
			Status:         string(m.Status),
			Description:    m.Description,
			Recommendation: m.Recommendation,
		}
	}

	return &Assessment{
		ID:            a.ID,
		ViewType:      string(a.ViewType),
		OverallScore:  a.OverallScore,
		OverallStatus: string(a.OverallStatus),
		Note:          r.Note,
		Source:        source,
		Metrics:       metrics,
		CreatedAt:     a.Timestamp,
	}
}

// AssessmentRepository provides CRUD operations for assessments.
type AssessmentRepository struct {
	db *sql.DB
}

// Assessments returns the assessment repository for this store.
func (s *Store) Assessments() *AssessmentRepository {
	return &AssessmentRepository{db: s.db}
}

// Create inserts an assessment and its metrics in a single transaction.
// A zero CreatedAt is set to the current time.
func (r *AssessmentRepository) Create(a *Assessment) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO assessments (id, view_type, overall_score, overall_status, note, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ViewType, a.OverallScore, a.OverallStatus, a.Note, a.Source, a.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO assessment_metrics
		 (assessment_id, position, key, label, value, status, description, recommendation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range a.Metrics {
		if _, err := stmt.Exec(a.ID, i, m.Key, m.Label, m.Value, m.Status, m.Description, m.Recommendation); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves an assessment with its metrics.
func (r *AssessmentRepository) GetByID(id string) (*Assessment, error) {
	a := &Assessment{}

	err := r.db.QueryRow(
		`SELECT id, view_type, overall_score, overall_status, note, source, created_at
		 FROM assessments WHERE id = ?`,
		id,
	).Scan(&a.ID, &a.ViewType, &a.OverallScore, &a.OverallStatus, &a.Note, &a.Source, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	metrics, err := r.metrics(id)
	if err != nil {
		return nil, err
	}
	a.Metrics = metrics

	return a, nil
}

// List retrieves the most recent assessments, newest first, without metrics.
// A limit <= 0 uses DefaultListLimit.
func (r *AssessmentRepository) List(limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT id, view_type, overall_score, overall_status, note, source, created_at
		 FROM assessments ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*Assessment
	for rows.Next() {
		a := &Assessment{}
		if err := rows.Scan(&a.ID, &a.ViewType, &a.OverallScore, &a.OverallStatus, &a.Note, &a.Source, &a.CreatedAt); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assessments, nil
}

// Delete removes an assessment, its metrics and its landmarks.
func (r *AssessmentRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM assessments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

func (r *AssessmentRepository) metrics(id string) ([]MetricRecord, error) {
	rows, err := r.db.Query(
		`SELECT key, label, value, status, description, recommendation
		 FROM assessment_metrics WHERE assessment_id = ? ORDER BY position`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []MetricRecord
	for rows.Next() {
		var m MetricRecord
		if err := rows.Scan(&m.Key, &m.Label, &m.Value, &m.Status, &m.Description, &m.Recommendation); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}
