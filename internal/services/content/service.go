package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/metadata"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

// DefaultListLimit applies when a caller does not ask for a page size
const DefaultListLimit = 50

// MaxListLimit caps a single page
const MaxListLimit = 500

// MetadataPatch is a manual correction of the curated fields. Nil fields
// are left alone. A non-empty KeywordLanguage recomputes the keywords from
// that language's transcript.
type MetadataPatch struct {
	URL             *string `json:"url"`
	Title           *string `json:"title"`
	Summary         *string `json:"summary"`
	Speaker         *string `json:"speaker"`
	Location        *string `json:"location"`
	Category        *string `json:"category"`
	KeywordLanguage string  `json:"keyword_language"`
}

// Empty reports whether the patch changes nothing
func (p MetadataPatch) Empty() bool {
	return p.URL == nil && p.Title == nil && p.Summary == nil && p.Speaker == nil &&
		p.Location == nil && p.Category == nil && p.KeywordLanguage == ""
}

// Service implements ContentService on top of a Repository
type Service struct {
	repository Repository
	now        func() time.Time
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new content service
func NewService(repository Repository, opts ...ServiceOption) *Service {
	s := &Service{repository: repository, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repository exposes the underlying store
func (s *Service) Repository() Repository {
	return s.repository
}

// Get returns a record by store id or job id
func (s *Service) Get(ctx context.Context, id string) (*models.ContentRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	return s.repository.FindByID(ctx, id)
}

// List returns a page of records, newest first
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.ContentRecord, int64, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.repository.List(ctx, opts)
}

// Search matches one field of every record
func (s *Service) Search(ctx context.Context, field, query string) ([]models.ContentRecord, error) {
	return s.repository.Search(ctx, strings.ToLower(strings.TrimSpace(field)), query)
}

// SearchTranscripts finds records whose transcripts contain any term as a
// whole word and reports the matching cues
func (s *Service) SearchTranscripts(ctx context.Context, terms []string) ([]TranscriptHit, error) {
	records, err := s.repository.SearchTranscripts(ctx, terms)
	if err != nil {
		return nil, err
	}

	hits := make([]TranscriptHit, 0, len(records))
	for i := range records {
		matches := MatchCues(&records[i], terms)
		hits = append(hits, TranscriptHit{
			Record:      records[i],
			Matches:     matches,
			Occurrences: len(matches),
		})
	}
	return hits, nil
}

// UpdateMetadata applies a manual correction to the record identified by id
func (s *Service) UpdateMetadata(ctx context.Context, id string, patch MetadataPatch) (*models.ContentRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return rec, nil
	}

	update := MetadataUpdate{
		Fields:      map[string]*string{},
		LastUpdated: s.now(),
	}
	set := func(column string, value *string) {
		if value == nil {
			return
		}
		v := strings.TrimSpace(*value)
		if v == "" {
			update.Fields[column] = nil
			return
		}
		update.Fields[column] = &v
	}
	set("url", patch.URL)
	set("title", patch.Title)
	set("summary", patch.Summary)
	set("speaker", patch.Speaker)
	set("location", patch.Location)
	set("category", patch.Category)

	if lang := strings.ToLower(strings.TrimSpace(patch.KeywordLanguage)); lang != "" {
		encoded, ok := rec.Transcript(lang)
		if !ok || transcript.IsReadError(encoded) {
			return nil, fmt.Errorf("%w: %s", ErrLanguageNotFound, lang)
		}
		update.Keywords = metadata.ExtractKeywords(transcript.PlainText(encoded), metadata.DefaultKeywordCount)
	}

	return s.repository.UpdateMetadata(ctx, rec.JobID, update)
}
