package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"gorm.io/datatypes"

	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

// SourceType identifies how the media for a job was supplied
type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceMP4     SourceType = "mp4"
)

// Valid reports whether s is a known source type
func (s SourceType) Valid() bool {
	return s == SourceYouTube || s == SourceMP4
}

// TranscriptionMethod values stored in ProcessingInfo
const (
	MethodLocal     = "local"
	MethodOpenAIAPI = "openai_api"
)

// ContentRecord is the persisted result of a pipeline run, keyed by JobID.
// Field names are shared with external readers of the store and must not change.
type ContentRecord struct {
	ID                  uint                        `json:"id" gorm:"primarykey" bson:"-"`
	JobID               string                      `json:"job_id" gorm:"uniqueIndex;not null" bson:"job_id"`
	SourceType          SourceType                  `json:"source_type" gorm:"index" bson:"source_type"`
	SourceLocation      string                      `json:"source_location" bson:"source_location"`
	URL                 *string                     `json:"url" bson:"url"`
	ProcessingTimestamp string                      `json:"processing_timestamp" bson:"processing_timestamp"`
	DetectedLanguage    string                      `json:"detected_language" gorm:"index" bson:"detected_language"`
	TranscriptContent   TranscriptContent           `json:"transcript_content" gorm:"type:json" bson:"transcript_content"`
	Keywords            datatypes.JSONSlice[string] `json:"keywords" bson:"keywords"`
	Title               *string                     `json:"title" bson:"title"`
	Summary             *string                     `json:"summary" bson:"summary"`
	Speaker             *string                     `json:"speaker" bson:"speaker"`
	Location            *string                     `json:"location" bson:"location"`
	Category            *string                     `json:"category" bson:"category"`
	ProcessingInfo      ProcessingInfo              `json:"processing_info" gorm:"type:json" bson:"processing_info"`
	DateAdded           time.Time                   `json:"date_added" bson:"date_added"`
	LastUpdated         time.Time                   `json:"last_updated" bson:"last_updated"`
}

// TableName overrides the default table name
func (ContentRecord) TableName() string {
	return "content_records"
}

// Transcript returns the stored transcript for lang
func (r *ContentRecord) Transcript(lang string) (string, bool) {
	return r.TranscriptContent.Get(lang)
}

// TranscriptContent is the ordered language->transcript map as stored in
// sqlite (JSON text) and mongo (embedded document).
type TranscriptContent struct {
	transcript.ContentMap
}

// GormDataType tells gorm which column type to use
func (TranscriptContent) GormDataType() string {
	return "json"
}

// Value implements driver.Valuer
func (c TranscriptContent) Value() (driver.Value, error) {
	data, err := json.Marshal(c.ContentMap)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (c *TranscriptContent) Scan(value interface{}) error {
	c.ContentMap = transcript.ContentMap{}
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, &c.ContentMap)
	case string:
		return json.Unmarshal([]byte(v), &c.ContentMap)
	default:
		return fmt.Errorf("unsupported transcript content type %T", value)
	}
}

// MarshalBSONValue writes the map as an embedded document in key order
func (c TranscriptContent) MarshalBSONValue() (bsontype.Type, []byte, error) {
	doc := bson.D{}
	for _, e := range c.Entries() {
		doc = append(doc, bson.E{Key: e.Language, Value: e.Content})
	}
	return bson.MarshalValue(doc)
}

// UnmarshalBSONValue reads an embedded document, keeping key order
func (c *TranscriptContent) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	c.ContentMap = transcript.ContentMap{}
	if t == bsontype.Null || t == bsontype.Undefined {
		return nil
	}
	if t != bsontype.EmbeddedDocument {
		return fmt.Errorf("transcript content: unexpected bson type %s", t)
	}

	elems, err := bson.Raw(data).Elements()
	if err != nil {
		return err
	}
	for _, elem := range elems {
		text, ok := elem.Value().StringValueOK()
		if !ok {
			return fmt.Errorf("transcript content for %q is not a string", elem.Key())
		}
		c.Set(elem.Key(), text)
	}
	return nil
}

// ProcessingInfo holds advisory diagnostics for the latest run of a job
type ProcessingInfo struct {
	RunID                         string            `json:"run_id,omitempty" bson:"run_id,omitempty"`
	ProcessedAt                   time.Time         `json:"processed_at" bson:"processed_at"`
	TranscriptionMethod           string            `json:"transcription_method" bson:"transcription_method"`
	TempAudioFile                 string            `json:"temp_audio_file,omitempty" bson:"temp_audio_file,omitempty"`
	TempUploadedFile              *string           `json:"temp_uploaded_file" bson:"temp_uploaded_file"`
	TempOriginalTranscriptFile    string            `json:"temp_original_transcript_file,omitempty" bson:"temp_original_transcript_file,omitempty"`
	TempTranslatedTranscriptFiles map[string]string `json:"temp_translated_transcript_files" bson:"temp_translated_transcript_files"`
	ContentReadErrors             []string          `json:"content_read_errors,omitempty" bson:"content_read_errors,omitempty"`
	TranslationErrors             map[string]string `json:"translation_errors,omitempty" bson:"translation_errors,omitempty"`
	TranslationUnavailable        bool              `json:"translation_unavailable,omitempty" bson:"translation_unavailable,omitempty"`
	MetadataLanguage              string            `json:"metadata_language,omitempty" bson:"metadata_language,omitempty"`
	MetadataGenerationError       string            `json:"metadata_generation_error,omitempty" bson:"metadata_generation_error,omitempty"`
}

// Value implements driver.Valuer
func (p ProcessingInfo) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (p *ProcessingInfo) Scan(value interface{}) error {
	*p = ProcessingInfo{}
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("type assertion to []byte failed")
	}
}
