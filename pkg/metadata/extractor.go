// Package metadata derives keywords and best-effort descriptive fields from
// transcript text.
//
// Title, summary, location and speaker are heuristics. Location and speaker
// values carry the ConfidenceMarker prefix so readers treat them as guesses.
package metadata

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/killallgit/media-transcript-api/pkg/language"
	"github.com/killallgit/media-transcript-api/pkg/transcript"
)

const (
	// DefaultKeywordCount is the number of keywords stored per record.
	DefaultKeywordCount = 10

	// ConfidenceMarker prefixes low confidence guesses.
	ConfidenceMarker = "Possibly: "

	summaryWords   = 50
	minTitleLength = 10
	maxTitleLength = 100
)

var (
	tokenPattern    = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)
	sentencePattern = regexp.MustCompile(`^.*?[.?!]`)
	locationPattern = regexp.MustCompile(`\b(?:in|at|near)[ \t]+([A-Z][A-Za-z\-]*(?:[ \t]+[A-Z][A-Za-z\-]*)*)`)
	speakerPattern  = regexp.MustCompile(`\b(?:voiced[ \t]+by|speaker:?|by|from)[ \t]+([A-Z][A-Za-z.\-]*(?:[ \t]+[A-Z][A-Za-z.\-]*)*)`)
)

// Fields are the record fields the extractor can fill in.
type Fields struct {
	Keywords []string
	Title    *string
	Summary  *string
	Speaker  *string
	Location *string
}

// ExtractKeywords returns up to maxCount of the most frequent tokens in text,
// most frequent first. Ties keep first-occurrence order. Stopwords, tokens
// of two runes or fewer and purely numeric tokens are dropped.
func ExtractKeywords(text string, maxCount int) []string {
	keywords := []string{}
	if maxCount <= 0 || strings.TrimSpace(text) == "" {
		return keywords
	}

	counts := make(map[string]int)
	var order []string
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if !keep(token) {
			continue
		}
		if counts[token] == 0 {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > maxCount {
		order = order[:maxCount]
	}
	return append(keywords, order...)
}

func keep(token string) bool {
	if utf8.RuneCountInString(token) <= 2 {
		return false
	}
	if IsStopword(token) {
		return false
	}
	return !isNumeric(token)
}

func isNumeric(token string) bool {
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// InferTitle uses the first sentence of text when its length is strictly
// between 10 and 100 characters.
func InferTitle(text string) (string, bool) {
	match := sentencePattern.FindString(strings.TrimSpace(text))
	title := strings.TrimSpace(match)
	n := utf8.RuneCountInString(title)
	if n <= minTitleLength || n >= maxTitleLength {
		return "", false
	}
	return title, true
}

// InferSummary returns the first 50 words of text, with "..." appended when
// text is longer.
func InferSummary(text string) (string, bool) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "", false
	}
	if len(words) <= summaryWords {
		return strings.Join(words, " "), true
	}
	return strings.Join(words[:summaryWords], " ") + "...", true
}

// InferLocation looks for "in", "at" or "near" followed by a capitalized
// phrase.
func InferLocation(text string) (string, bool) {
	return guess(locationPattern, text)
}

// InferSpeaker looks for "by", "from", "speaker:" or "voiced by" followed by
// a capitalized phrase.
func InferSpeaker(text string) (string, bool) {
	return guess(speakerPattern, text)
}

func guess(pattern *regexp.Regexp, text string) (string, bool) {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	value := strings.TrimRight(strings.TrimSpace(m[1]), ".-")
	if value == "" {
		return "", false
	}
	return ConfidenceMarker + value, true
}

// SelectContent picks the transcript to extract metadata from. It prefers
// the detected language, then English, then Nepali, and otherwise takes the
// first readable entry in insertion order.
func SelectContent(content transcript.ContentMap, detected string) (string, string, bool) {
	preferred := []string{detected, language.English, language.Nepali}
	for _, lang := range preferred {
		if lang == "" {
			continue
		}
		if text, ok := content.Get(lang); ok && usable(text) {
			return lang, text, true
		}
	}

	for _, e := range content.Entries() {
		if usable(e.Content) {
			return e.Language, e.Content, true
		}
	}
	return "", "", false
}

func usable(content string) bool {
	return content != "" && !transcript.IsReadError(content)
}

// Apply recomputes keywords from text and fills any empty descriptive field.
// Fields that already hold a value are left alone.
func Apply(f *Fields, text string) {
	f.Keywords = ExtractKeywords(text, DefaultKeywordCount)
	if strings.TrimSpace(text) == "" {
		return
	}

	fill(&f.Title, InferTitle, text)
	fill(&f.Summary, InferSummary, text)
	fill(&f.Location, InferLocation, text)
	fill(&f.Speaker, InferSpeaker, text)
}

func fill(field **string, infer func(string) (string, bool), text string) {
	if *field != nil && strings.TrimSpace(**field) != "" {
		return
	}
	if value, ok := infer(text); ok {
		*field = &value
	}
}

// FromTranscript selects a transcript from content, converts it to plain
// text and applies it to f. It returns the language used, or "" when no
// transcript was usable.
func FromTranscript(f *Fields, content transcript.ContentMap, detected string) string {
	lang, encoded, ok := SelectContent(content, detected)
	if !ok {
		f.Keywords = []string{}
		return ""
	}
	Apply(f, transcript.PlainText(encoded))
	return lang
}
