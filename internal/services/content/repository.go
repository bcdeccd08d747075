package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/killallgit/media-transcript-api/internal/models"
)

// repository implements Repository using GORM
type repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a new sqlite-backed content repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db, now: time.Now}
}

// Upsert inserts or replaces rec by job id
func (r *repository) Upsert(ctx context.Context, rec *models.ContentRecord) (UpsertResult, error) {
	if rec == nil || rec.JobID == "" {
		return UpsertResult{}, errors.New("content record with a job id is required")
	}

	db := r.db.WithContext(ctx)

	var existing models.ContentRecord
	err := db.Where("job_id = ?", rec.JobID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec.ID = 0
		if rec.DateAdded.IsZero() {
			rec.DateAdded = r.now()
		}
		if rec.LastUpdated.IsZero() {
			rec.LastUpdated = rec.DateAdded
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoNothing: true,
		}).Create(rec)
		if result.Error != nil {
			return UpsertResult{}, fmt.Errorf("inserting %s: %w", rec.JobID, result.Error)
		}
		if result.RowsAffected == 1 {
			return UpsertResult{Status: StatusCreated, ID: strconv.FormatUint(uint64(rec.ID), 10)}, nil
		}

		// another run created the job between lookup and insert
		if err := db.Where("job_id = ?", rec.JobID).First(&existing).Error; err != nil {
			return UpsertResult{}, fmt.Errorf("reloading %s: %w", rec.JobID, err)
		}
	case err != nil:
		return UpsertResult{}, fmt.Errorf("looking up %s: %w", rec.JobID, err)
	}

	return r.replace(ctx, &existing, rec)
}

// replace overwrites every column except identity and creation time
func (r *repository) replace(ctx context.Context, existing, rec *models.ContentRecord) (UpsertResult, error) {
	rec.ID = existing.ID
	rec.DateAdded = existing.DateAdded
	if rec.LastUpdated.IsZero() {
		rec.LastUpdated = r.now()
	}

	// sqlite counts matched rows, not changed ones
	if sameRecord(*existing, *rec) {
		return UpsertResult{Status: StatusNoChange, ID: strconv.FormatUint(uint64(existing.ID), 10)}, nil
	}

	result := r.db.WithContext(ctx).
		Model(rec).
		Select("*").
		Omit("id", "job_id", "date_added").
		Updates(rec)
	if result.Error != nil {
		return UpsertResult{}, fmt.Errorf("updating %s: %w", rec.JobID, result.Error)
	}

	status := StatusUpdated
	if result.RowsAffected == 0 {
		status = StatusNoChange
	}
	return UpsertResult{Status: status, ID: strconv.FormatUint(uint64(existing.ID), 10)}, nil
}

// FindByJobID retrieves a record by its natural key
func (r *repository) FindByJobID(ctx context.Context, jobID string) (*models.ContentRecord, error) {
	var rec models.ContentRecord
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByID retrieves by numeric id, then by job id
func (r *repository) FindByID(ctx context.Context, id string) (*models.ContentRecord, error) {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		var rec models.ContentRecord
		err := r.db.WithContext(ctx).First(&rec, n).Error
		if err == nil {
			return &rec, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return r.FindByJobID(ctx, id)
}

// List returns a page of records, newest first
func (r *repository) List(ctx context.Context, opts ListOptions) ([]models.ContentRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ContentRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Order("date_added DESC").Order("id DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	records := []models.ContentRecord{}
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Search matches one field. Free-text fields use LIKE as a prefilter and
// a Unicode case fold in Go, since sqlite only folds ASCII.
func (r *repository) Search(ctx context.Context, field, query string) ([]models.ContentRecord, error) {
	kind, err := lookupField(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, field)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	db := r.db.WithContext(ctx).Order("date_added DESC").Order("id DESC")
	records := []models.ContentRecord{}

	switch kind {
	case kindExact:
		err = db.Where(clause.Eq{Column: clause.Column{Name: field}, Value: query}).Find(&records).Error
		return records, err
	case kindArray:
		err = db.Where("EXISTS (SELECT 1 FROM json_each(content_records.keywords) WHERE json_each.value = ?)", strings.ToLower(query)).
			Find(&records).Error
		return records, err
	case kindTranscript:
		if err = db.Where("transcript_content IS NOT NULL").Find(&records).Error; err != nil {
			return nil, err
		}
		return filterRecords(records, func(rec *models.ContentRecord) bool {
			return transcriptContains(rec, query)
		}), nil
	default:
		if err = db.Where(clause.Neq{Column: clause.Column{Name: field}, Value: nil}).Find(&records).Error; err != nil {
			return nil, err
		}
		return filterRecords(records, func(rec *models.ContentRecord) bool {
			value := textField(rec, field)
			return value != nil && containsFold(*value, query)
		}), nil
	}
}

// SearchTranscripts returns records with a whole word match for any term
func (r *repository) SearchTranscripts(ctx context.Context, terms []string) ([]models.ContentRecord, error) {
	terms = cleanTerms(terms)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	records := []models.ContentRecord{}
	if err := r.db.WithContext(ctx).Order("date_added DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	patterns := compileTerms(terms)
	return filterRecords(records, func(rec *models.ContentRecord) bool {
		return transcriptMatches(rec, patterns)
	}), nil
}

// UpdateMetadata sets curated columns on an existing record
func (r *repository) UpdateMetadata(ctx context.Context, jobID string, update MetadataUpdate) (*models.ContentRecord, error) {
	values := map[string]interface{}{}
	for column, value := range update.Fields {
		if _, ok := metadataColumns[column]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedField, column)
		}
		values[column] = value
	}
	if update.Keywords != nil {
		values["keywords"] = datatypes.JSONSlice[string](update.Keywords)
	}
	if len(values) == 0 {
		return r.FindByJobID(ctx, jobID)
	}
	if update.LastUpdated.IsZero() {
		update.LastUpdated = r.now()
	}
	values["last_updated"] = update.LastUpdated

	result := r.db.WithContext(ctx).Model(&models.ContentRecord{}).Where("job_id = ?", jobID).Updates(values)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByJobID(ctx, jobID)
}

// Ping checks the database connection
func (r *repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// metadataColumns are the curated fields a caller may edit
var metadataColumns = map[string]struct{}{
	"url":      {},
	"title":    {},
	"summary":  {},
	"speaker":  {},
	"location": {},
	"category": {},
}

// sameRecord compares the persisted form of two records
func sameRecord(a, b models.ContentRecord) bool {
	if !a.LastUpdated.Equal(b.LastUpdated) || !a.ProcessingInfo.ProcessedAt.Equal(b.ProcessingInfo.ProcessedAt) {
		return false
	}
	for _, rec := range []*models.ContentRecord{&a, &b} {
		rec.ID = 0
		rec.DateAdded = time.Time{}
		rec.LastUpdated = time.Time{}
		rec.ProcessingInfo.ProcessedAt = time.Time{}
	}

	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

func textField(rec *models.ContentRecord, field string) *string {
	switch field {
	case "title":
		return rec.Title
	case "summary":
		return rec.Summary
	case "speaker":
		return rec.Speaker
	case "location":
		return rec.Location
	case "category":
		return rec.Category
	case "url":
		return rec.URL
	case "source_location":
		return &rec.SourceLocation
	default:
		return nil
	}
}

func filterRecords(records []models.ContentRecord, keep func(*models.ContentRecord) bool) []models.ContentRecord {
	out := make([]models.ContentRecord, 0, len(records))
	for i := range records {
		if keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
