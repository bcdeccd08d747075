// Package naming derives filesystem-safe identifiers from user supplied
// titles and filenames.
package naming

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Placeholder is returned for input that sanitizes to nothing.
	Placeholder = "untitled"

	// MaxLength is the maximum length of a sanitized name, in runes.
	MaxLength = 200

	// TimestampLayout has second resolution.
	TimestampLayout = "20060102_150405"
)

var (
	illegalChars   = regexp.MustCompile(`[<>:"/\\|?*']`)
	// Unicode whitespace, including the separators \s leaves out
	whitespaceRuns = regexp.MustCompile(`[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]+`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// Sanitize turns an arbitrary title or filename into a lowercase name that is
// safe to embed in a filename. It never fails and is idempotent.
func Sanitize(name string) string {
	s := illegalChars.ReplaceAllString(name, "")
	s = whitespaceRuns.ReplaceAllString(s, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.ToLower(s)
	s = strings.Trim(s, "_")

	if utf8.RuneCountInString(s) > MaxLength {
		s = string([]rune(s)[:MaxLength])
		s = strings.TrimRight(s, "_")
	}

	if s == "" {
		return Placeholder
	}
	return s
}

// Timestamp returns the current local time formatted with TimestampLayout.
func Timestamp() string {
	return TimestampAt(time.Now())
}

// TimestampAt formats t with TimestampLayout.
func TimestampAt(t time.Time) string {
	return t.Format(TimestampLayout)
}

// JobID joins an already sanitized title and a timestamp.
func JobID(title, ts string) string {
	return title + "_" + ts
}

// FileName builds "<base>_<ts><ext>" from an unsanitized base.
func FileName(base, ts, ext string) string {
	return JobID(Sanitize(base), ts) + ext
}

// TranscriptFile returns the name of the encoded transcript for a language.
func TranscriptFile(jobID, lang string) string {
	return jobID + "_transcription_" + lang + ".vtt"
}

// TempTranscriptFile returns the name of the intermediate transcript file.
func TempTranscriptFile(jobID string) string {
	return jobID + "_transcription_temp.vtt"
}
