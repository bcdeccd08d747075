package content

import (
	"context"
	"errors"
	"time"

	"github.com/killallgit/media-transcript-api/internal/models"
)

var (
	// ErrNotFound means no record matches the key
	ErrNotFound = errors.New("content record not found")
	// ErrUnsupportedField means the search field is not searchable
	ErrUnsupportedField = errors.New("unsupported search field")
	// ErrEmptyQuery means a search was requested without terms
	ErrEmptyQuery = errors.New("search query must not be empty")
	// ErrLanguageNotFound means the record has no transcript in the language
	ErrLanguageNotFound = errors.New("no transcript for language")
)

// UpsertStatus reports what an upsert did
type UpsertStatus string

const (
	StatusCreated  UpsertStatus = "created"
	StatusUpdated  UpsertStatus = "updated"
	StatusNoChange UpsertStatus = "no-change"
)

// UpsertResult is returned by Repository.Upsert
type UpsertResult struct {
	Status UpsertStatus
	ID     string // store assigned id
}

// ListOptions pages through records newest first
type ListOptions struct {
	Limit  int
	Offset int
}

// MetadataUpdate changes curated fields in place. Nil fields are left
// alone; Keywords nil means unchanged.
type MetadataUpdate struct {
	Fields      map[string]*string // column name -> value
	Keywords    []string
	LastUpdated time.Time
}

// Repository persists content records keyed by job id
type Repository interface {
	// Upsert inserts rec or replaces every field of the existing record
	// except its identity and date_added
	Upsert(ctx context.Context, rec *models.ContentRecord) (UpsertResult, error)

	// FindByJobID returns ErrNotFound when absent
	FindByJobID(ctx context.Context, jobID string) (*models.ContentRecord, error)

	// FindByID looks up by store id, falling back to job id
	FindByID(ctx context.Context, id string) (*models.ContentRecord, error)

	// List returns records by date_added descending plus the total count
	List(ctx context.Context, opts ListOptions) ([]models.ContentRecord, int64, error)

	// Search matches one field, see SearchFields
	Search(ctx context.Context, field, query string) ([]models.ContentRecord, error)

	// SearchTranscripts returns records whose transcript contains any term
	// as a whole word, case-insensitively
	SearchTranscripts(ctx context.Context, terms []string) ([]models.ContentRecord, error)

	// UpdateMetadata applies a curated field update and returns the record
	UpdateMetadata(ctx context.Context, jobID string, update MetadataUpdate) (*models.ContentRecord, error)

	// Ping checks connectivity
	Ping(ctx context.Context) error
}

// ContentService is the read and curation API used by the HTTP handlers
type ContentService interface {
	Get(ctx context.Context, id string) (*models.ContentRecord, error)
	List(ctx context.Context, opts ListOptions) ([]models.ContentRecord, int64, error)
	Search(ctx context.Context, field, query string) ([]models.ContentRecord, error)
	SearchTranscripts(ctx context.Context, terms []string) ([]TranscriptHit, error)
	UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*models.ContentRecord, error)
}
