package types

import (
	"time"

	"github.com/killallgit/media-transcript-api/internal/models"
)

// Flag is a boolean that also accepts the strings "true" and "false", as
// sent by form based clients
type Flag bool

// Run is the API view of one processing run
type Run struct {
	RunID               string                 `json:"run_id"`
	JobID               string                 `json:"job_id"`
	SourceType          models.SourceType      `json:"source_type"`
	SourceLocation      string                 `json:"source_location"`
	Status              models.RunStatus       `json:"status"`
	Stage               string                 `json:"stage"`
	Outcome             string                 `json:"outcome,omitempty"`
	TranscriptionMethod string                 `json:"transcription_method,omitempty"`
	DetectedLanguage    string                 `json:"detected_language,omitempty"`
	StartedAt           time.Time              `json:"started_at"`
	CompletedAt         *time.Time             `json:"completed_at,omitempty"`
	DurationMS          int64                  `json:"duration_ms,omitempty"`
	Error               string                 `json:"error,omitempty"`
	ErrorType           models.RunErrorType    `json:"error_type,omitempty"`
	ErrorCode           string                 `json:"error_code,omitempty"`
	Diagnostics         map[string]interface{} `json:"diagnostics,omitempty"`
}

// TranscriptMatch is a record that matched a transcript word search
type TranscriptMatch struct {
	Record      models.ContentRecord `json:"record"`
	Matches     []Cue                `json:"matches"`
	Occurrences int                  `json:"occurrences"`
}

// Cue is one matching subtitle cue with VTT timestamps
type Cue struct {
	Language string `json:"language"`
	Start    string `json:"start" example:"00:00:01.500"`
	End      string `json:"end" example:"00:00:04.000"`
	Text     string `json:"text"`
}
