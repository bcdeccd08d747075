package types

import (
	"context"

	"github.com/killallgit/media-transcript-api/internal/database"
	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	"github.com/killallgit/media-transcript-api/internal/services/pipeline"
)

// Processor runs one request through the transcription pipeline
type Processor interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// RunHistory reads the processing run log
type RunHistory interface {
	ListByJob(ctx context.Context, jobID string, limit int) ([]models.ProcessingRun, error)
}

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// Capabilities reports which optional collaborators are configured
type Capabilities struct {
	RemoteTranscription bool `json:"remote_transcription"`
	LocalTranscription  bool `json:"local_transcription"`
	Translation         bool `json:"translation"`
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB             *database.DB
	Store          Pinger
	StoreBackend   string
	Pipeline       Processor
	ContentService content.ContentService
	Runs           RunHistory
	Capabilities   Capabilities
	MaxUploadSize  int64
	UploadDir      string
}
