package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunStatus represents the state of a pipeline run
type RunStatus string

const (
	RunStatusProcessing RunStatus = "processing"
	RunStatusSucceeded  RunStatus = "succeeded"
	RunStatusFailed     RunStatus = "failed"
)

// RunErrorType is the failure classification reported to callers
type RunErrorType string

const (
	ErrorTypeClient   RunErrorType = "client-error"
	ErrorTypeNotFound RunErrorType = "not-found"
	ErrorTypeUpstream RunErrorType = "upstream-processing-error"
	ErrorTypeInternal RunErrorType = "internal-error"
)

// ProcessingRun records one execution of the pipeline for a job. A job
// processed twice has two runs and one ContentRecord.
type ProcessingRun struct {
	gorm.Model
	RunID               string            `json:"run_id" gorm:"uniqueIndex;not null"`
	JobID               string            `json:"job_id" gorm:"index"`
	SourceType          SourceType        `json:"source_type"`
	SourceLocation      string            `json:"source_location"`
	Status              RunStatus         `json:"status" gorm:"default:'processing';index"`
	Stage               string            `json:"stage"`
	Outcome             string            `json:"outcome,omitempty"`
	TranscriptionMethod string            `json:"transcription_method,omitempty"`
	DetectedLanguage    string            `json:"detected_language,omitempty"`
	StartedAt           time.Time         `json:"started_at"`
	CompletedAt         *time.Time        `json:"completed_at"`
	Error               string            `json:"error,omitempty"`
	ErrorType           RunErrorType      `json:"error_type,omitempty"`
	ErrorCode           string            `json:"error_code,omitempty"`
	Diagnostics         datatypes.JSONMap `json:"diagnostics,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running
func (r *ProcessingRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Finished reports whether the run reached a terminal status
func (r *ProcessingRun) Finished() bool {
	return r.Status == RunStatusSucceeded || r.Status == RunStatusFailed
}
