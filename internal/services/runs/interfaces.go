package runs

import (
	"context"
	"errors"
	"time"

	"github.com/killallgit/media-transcript-api/internal/models"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("processing run not found")

// Completion describes a successful run
type Completion struct {
	Outcome             string
	TranscriptionMethod string
	DetectedLanguage    string
	Diagnostics         map[string]interface{}
}

// Failure describes a failed run
type Failure struct {
	Stage     string
	ErrorType models.RunErrorType
	ErrorCode string
	Message   string
}

// Recorder keeps the processing run log
type Recorder interface {
	// Start records a new run in the processing state
	Start(ctx context.Context, run *models.ProcessingRun) error

	// Advance moves the run to stage, setting the job id once it is known
	Advance(ctx context.Context, runID, stage, jobID string) error

	Complete(ctx context.Context, runID string, c Completion) error
	Fail(ctx context.Context, runID string, f Failure) error

	Get(ctx context.Context, runID string) (*models.ProcessingRun, error)

	// ListByJob returns the runs of a job, newest first
	ListByJob(ctx context.Context, jobID string, limit int) ([]models.ProcessingRun, error)

	// DeleteOlderThan removes finished runs that started before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
