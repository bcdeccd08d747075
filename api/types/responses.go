package types

import "github.com/killallgit/media-transcript-api/internal/models"

// Status constants for API responses
const (
	StatusOK      = "ok"
	StatusSuccess = "success"
	StatusError   = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`            // One of the Status constants above
	Message string `json:"message,omitempty"` // Human-readable message
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string                 `json:"status"`
	Kind    string                 `json:"kind,omitempty"` // client-error, not-found, upstream-processing-error, internal-error
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TranscriptionResponse is returned by a successful pipeline run
type TranscriptionResponse struct {
	Status           string                       `json:"status" example:"success"`
	Outcome          string                       `json:"outcome" example:"created"`
	JobID            string                       `json:"job_id" example:"talk_20240101_120000"`
	RunID            string                       `json:"run_id"`
	DetectedLanguage string                       `json:"detected_language" example:"en"`
	Message          string                       `json:"message"`
	RecordID         string                       `json:"inserted_or_updated_id" example:"1"`
	TranscriptEN     string                       `json:"transcript_en"`
	TranscriptNE     string                       `json:"transcript_ne"`
	Filename         string                       `json:"filename"`
	Translations     map[string]TranslationStatus `json:"translations,omitempty"`
}

// TranslationStatus is the outcome for one target language
type TranslationStatus struct {
	Status string `json:"status" example:"ok"`
	Error  string `json:"error,omitempty"`
}

// ContentResponse wraps a single record
type ContentResponse struct {
	BaseResponse
	Content *models.ContentRecord `json:"content"`
}

// ContentListResponse for paged record lists
type ContentListResponse struct {
	BaseResponse
	Contents []models.ContentRecord `json:"contents"`
	Count    int                    `json:"count"` // Number of results in this response
	Total    int64                  `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
}

// SearchResponse for field searches
type SearchResponse struct {
	BaseResponse
	Field    string                 `json:"field"`
	Query    string                 `json:"query"`
	Contents []models.ContentRecord `json:"contents"`
	Count    int                    `json:"count"`
}

// TranscriptSearchResponse for transcript word searches
type TranscriptSearchResponse struct {
	BaseResponse
	Terms   []string          `json:"terms"`
	Results []TranscriptMatch `json:"results"`
	Count   int               `json:"count"`
}

// RunsResponse lists the processing history of a job
type RunsResponse struct {
	BaseResponse
	JobID string `json:"job_id"`
	Runs  []Run  `json:"runs"`
	Count int    `json:"count"`
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status       string                 `json:"status"`
	Timestamp    string                 `json:"timestamp"`
	Database     map[string]interface{} `json:"database"`
	Store        map[string]interface{} `json:"store"`
	Capabilities Capabilities           `json:"capabilities"`
}
