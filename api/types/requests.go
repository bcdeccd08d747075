package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TranscriptionRequest is the JSON body of a transcription request. For
// source_type youtube, source is the video URL; for mp4 it is the path of
// a file already in the upload directory.
type TranscriptionRequest struct {
	SourceType         string `json:"source_type" example:"youtube"`
	Source             string `json:"source" example:"https://www.youtube.com/watch?v=dQw4w9WgXcQ"`
	GenerateMetadata   Flag   `json:"generate_metadata" swaggertype:"boolean" example:"true"`
	LocalTranscription Flag   `json:"local_transcription" swaggertype:"boolean" example:"false"`
}

// SearchRequest searches either transcript words (Terms) or a single field
type SearchRequest struct {
	Terms []string `json:"terms,omitempty" example:"stupa,kathmandu"`
	Field string   `json:"field,omitempty" example:"speaker"`
	Query string   `json:"query,omitempty" example:"Rinpoche"`
}

// MetadataRequest updates curated fields. An omitted field is left alone
// and an empty string clears it. KeywordLanguage regenerates keywords from
// the transcript in that language.
type MetadataRequest struct {
	URL             *string `json:"url,omitempty"`
	Title           *string `json:"title,omitempty" example:"Circumambulating Boudhanath"`
	Summary         *string `json:"summary,omitempty"`
	Speaker         *string `json:"speaker,omitempty"`
	Location        *string `json:"location,omitempty"`
	Category        *string `json:"category,omitempty"`
	KeywordLanguage string  `json:"keyword_language,omitempty" example:"en"`
}

// UnmarshalJSON accepts true, false, "true", "false" and null
func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("flag must be a boolean or a string: %w", err)
	}
	*f = Flag(s != nil && ParseFlag(*s))
	return nil
}

// ParseFlag treats only a case-insensitive "true" as set
func ParseFlag(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}
