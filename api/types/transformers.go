package types

import (
	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/internal/services/content"
	"github.com/killallgit/media-transcript-api/internal/services/pipeline"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

// PreviewLength is the number of characters shown in transcript previews
const PreviewLength = 100

// Preview returns the first PreviewLength characters of text followed by
// "...", or "N/A" when there is no text
func Preview(text string) string {
	if text == "" {
		return "N/A"
	}
	runes := []rune(text)
	if len(runes) > PreviewLength {
		runes = runes[:PreviewLength]
	}
	return string(runes) + "..."
}

// FromResult builds the transcription response for a finished run
func FromResult(r *pipeline.Result) TranscriptionResponse {
	resp := TranscriptionResponse{
		Status:           StatusSuccess,
		Outcome:          string(r.Status),
		JobID:            r.JobID,
		RunID:            r.RunID,
		DetectedLanguage: r.DetectedLanguage,
		Message:          r.Message,
		RecordID:         r.RecordID,
		TranscriptEN:     "N/A",
		TranscriptNE:     "N/A",
		Filename:         r.Filename,
	}

	if r.Record != nil {
		en, _ := r.Record.Transcript("en")
		ne, _ := r.Record.Transcript("ne")
		resp.TranscriptEN = Preview(en)
		resp.TranscriptNE = Preview(ne)
	}

	if len(r.Translations) > 0 {
		resp.Translations = make(map[string]TranslationStatus, len(r.Translations))
		for lang, outcome := range r.Translations {
			resp.Translations[lang] = TranslationStatus{Status: outcome.Status, Error: outcome.Error}
		}
	}
	return resp
}

// FromRun transforms a stored run into its API view
func FromRun(r *models.ProcessingRun) Run {
	view := Run{
		RunID:               r.RunID,
		JobID:               r.JobID,
		SourceType:          r.SourceType,
		SourceLocation:      r.SourceLocation,
		Status:              r.Status,
		Stage:               r.Stage,
		Outcome:             r.Outcome,
		TranscriptionMethod: r.TranscriptionMethod,
		DetectedLanguage:    r.DetectedLanguage,
		StartedAt:           r.StartedAt,
		CompletedAt:         r.CompletedAt,
		DurationMS:          r.Duration().Milliseconds(),
		Error:               r.Error,
		ErrorType:           r.ErrorType,
		ErrorCode:           r.ErrorCode,
	}
	if len(r.Diagnostics) > 0 {
		view.Diagnostics = map[string]interface{}(r.Diagnostics)
	}
	return view
}

// FromRunList transforms a list of runs
func FromRunList(list []models.ProcessingRun) []Run {
	result := make([]Run, 0, len(list))
	for i := range list {
		result = append(result, FromRun(&list[i]))
	}
	return result
}

// FromTranscriptHits transforms transcript search hits
func FromTranscriptHits(hits []content.TranscriptHit) []TranscriptMatch {
	result := make([]TranscriptMatch, 0, len(hits))
	for _, hit := range hits {
		cues := make([]Cue, 0, len(hit.Matches))
		for _, m := range hit.Matches {
			cues = append(cues, Cue{
				Language: m.Language,
				Start:    transcript.FormatTimestamp(m.Start),
				End:      transcript.FormatTimestamp(m.End),
				Text:     m.Text,
			})
		}
		result = append(result, TranscriptMatch{Record: hit.Record, Matches: cues, Occurrences: hit.Occurrences})
	}
	return result
}
