package publish

import (
	"context"
	"fmt"

	"github.com/ayusman/posturelab/internal/posture"
	"github.com/ayusman/posturelab/internal/store"
)

// Archive stores every report, with its landmarks, in the local database.
type Archive struct {
	store *store.Store
}

// NewArchive creates an archive sink over s.
func NewArchive(s *store.Store) *Archive {
	return &Archive{store: s}
}

// Name implements Sink.
func (a *Archive) Name() string {
	return "archive"
}

// Publish implements Sink.
func (a *Archive) Publish(ctx context.Context, report *posture.Report) error {
	if report == nil || report.Analysis == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := a.store.Assessments().Create(store.NewAssessment(report, SourceFrom(ctx))); err != nil {
		return fmt.Errorf("failed to archive assessment: %w", err)
	}
	if len(report.Landmarks) > 0 {
		if err := a.store.Landmarks().Save(report.Analysis.ID, report.Landmarks); err != nil {
			return fmt.Errorf("failed to archive landmarks: %w", err)
		}
	}
	return nil
}
