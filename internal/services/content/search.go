package content

import (
	"regexp"
	"sort"
	"strings"

	"github.com/killallgit/media-transcript-api/internal/models"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindExact
	kindArray
	kindTranscript
)

// SearchFields lists the searchable fields and how each is matched
var searchFields = map[string]fieldKind{
	"title":             kindText,
	"summary":           kindText,
	"speaker":           kindText,
	"location":          kindText,
	"category":          kindText,
	"source_location":   kindText,
	"url":               kindText,
	"transcript":        kindTranscript,
	"detected_language": kindExact,
	"source_type":       kindExact,
	"job_id":            kindExact,
	"keywords":          kindArray,
}

// SearchFields returns the supported search field names, sorted
func SearchFields() []string {
	names := make([]string, 0, len(searchFields))
	for name := range searchFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupField(field string) (fieldKind, error) {
	kind, ok := searchFields[field]
	if !ok {
		return 0, ErrUnsupportedField
	}
	return kind, nil
}

// wordChars mirrors the keyword tokenizer so Devanagari words get proper
// boundaries; regexp's \b only knows ASCII.
const wordChars = `\p{L}\p{M}\p{N}_`

// wordPattern matches term as a whole word, case-insensitively. The same
// pattern is valid for Go regexp and for MongoDB's PCRE.
func wordPattern(term string) string {
	return `(?i)(^|[^` + wordChars + `])` + regexp.QuoteMeta(term) + `($|[^` + wordChars + `])`
}

func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func compileTerms(terms []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(terms))
	for _, t := range terms {
		res = append(res, regexp.MustCompile(wordPattern(t)))
	}
	return res
}

// spokenText returns the cue text of each readable transcript, leaving out
// the WEBVTT header and cue timings
func spokenText(rec *models.ContentRecord) []string {
	out := make([]string, 0, rec.TranscriptContent.Len())
	for _, e := range rec.TranscriptContent.Entries() {
		if transcript.IsReadError(e.Content) {
			continue
		}
		if text := transcript.PlainText(e.Content); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// transcriptMatches reports whether any transcript entry matches any pattern
func transcriptMatches(rec *models.ContentRecord, patterns []*regexp.Regexp) bool {
	for _, text := range spokenText(rec) {
		for _, re := range patterns {
			if re.MatchString(text) {
				return true
			}
		}
	}
	return false
}

// containsFold is the Go side of the free-text substring match
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func transcriptContains(rec *models.ContentRecord, query string) bool {
	for _, text := range spokenText(rec) {
		if containsFold(text, query) {
			return true
		}
	}
	return false
}

// CueMatch is one cue of a transcript containing a search term
type CueMatch struct {
	Language string  `json:"language"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
}

// TranscriptHit is a record found by transcript search with the cues that
// matched
type TranscriptHit struct {
	Record      models.ContentRecord `json:"record"`
	Matches     []CueMatch           `json:"matches"`
	Occurrences int                  `json:"occurrences"`
}

// MatchCues decodes every transcript of rec and returns the cues that
// contain any term as a whole word
func MatchCues(rec *models.ContentRecord, terms []string) []CueMatch {
	patterns := compileTerms(cleanTerms(terms))
	matches := []CueMatch{}
	for _, e := range rec.TranscriptContent.Entries() {
		if transcript.IsReadError(e.Content) {
			continue
		}
		for _, seg := range transcript.Decode(e.Content) {
			for _, re := range patterns {
				if re.MatchString(seg.Text) {
					matches = append(matches, CueMatch{Language: e.Language, Start: seg.Start, End: seg.End, Text: seg.Text})
					break
				}
			}
		}
	}
	return matches
}
