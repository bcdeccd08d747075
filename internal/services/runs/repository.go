package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/killallgit/media-transcript-api/internal/models"
)

// repository implements Recorder on the sqlite run log
type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new run recorder
func NewRepository(db *gorm.DB) Recorder {
	return &repository{db: db, now: time.Now}
}

// Start creates the run row
func (r *repository) Start(ctx context.Context, run *models.ProcessingRun) error {
	if run.RunID == "" {
		return errors.New("run id is required")
	}
	run.Status = models.RunStatusProcessing
	if run.StartedAt.IsZero() {
		run.StartedAt = r.now()
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	return nil
}

// Advance records the stage a run has reached
func (r *repository) Advance(ctx context.Context, runID, stage, jobID string) error {
	updates := map[string]interface{}{"stage": stage}
	if jobID != "" {
		updates["job_id"] = jobID
	}
	return r.update(ctx, runID, updates)
}

// Complete marks a run as succeeded
func (r *repository) Complete(ctx context.Context, runID string, c Completion) error {
	now := r.now()
	updates := map[string]interface{}{
		"status":               models.RunStatusSucceeded,
		"stage":                "done",
		"outcome":              c.Outcome,
		"transcription_method": c.TranscriptionMethod,
		"detected_language":    c.DetectedLanguage,
		"completed_at":         &now,
	}
	if len(c.Diagnostics) > 0 {
		updates["diagnostics"] = datatypes.JSONMap(c.Diagnostics)
	}
	return r.update(ctx, runID, updates)
}

// Fail marks a run as failed with its classification
func (r *repository) Fail(ctx context.Context, runID string, f Failure) error {
	now := r.now()
	return r.update(ctx, runID, map[string]interface{}{
		"status":       models.RunStatusFailed,
		"stage":        f.Stage,
		"error":        f.Message,
		"error_type":   f.ErrorType,
		"error_code":   f.ErrorCode,
		"completed_at": &now,
	})
}

func (r *repository) update(ctx context.Context, runID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProcessingRun{}).
		Where("run_id = ?", runID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("updating run %s: %w", runID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get retrieves a run by its id
func (r *repository) Get(ctx context.Context, runID string) (*models.ProcessingRun, error) {
	var run models.ProcessingRun
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return &run, nil
}

// ListByJob returns the runs of a job, newest first
func (r *repository) ListByJob(ctx context.Context, jobID string, limit int) ([]models.ProcessingRun, error) {
	runs := []models.ProcessingRun{}
	query := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("started_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// DeleteOlderThan removes finished runs that started before cutoff
func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("started_at < ? AND status IN ?", cutoff, []models.RunStatus{models.RunStatusSucceeded, models.RunStatusFailed}).
		Delete(&models.ProcessingRun{})
	return result.RowsAffected, result.Error
}
