// Package transcript encodes and decodes timed caption text in the WebVTT
// layout used for stored transcripts.
package transcript

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultHeader is the first line of every encoded transcript.
const DefaultHeader = "WEBVTT"

// maxSeconds keeps millisecond arithmetic inside int64.
const maxSeconds = 1e12

// Segment is one timed span of text. Offsets are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

var (
	timingLine = regexp.MustCompile(`^(\S+)\s+-->\s+(\S+)(?:\s.*)?$`)
	timestamp  = regexp.MustCompile(`^(?:(\d+):)?(\d{2}):(\d{2})[.,](\d{3})$`)
	cueTags    = regexp.MustCompile(`</?(?:v|c|i|b|u|lang|ruby|rt)(?:[.\s][^>]*)?>`)
	lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
)

// FormatTimestamp renders seconds as HH:MM:SS.mmm. Negative and non-finite
// values render as zero.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	if seconds > maxSeconds {
		seconds = maxSeconds
	}

	// the epsilon absorbs float noise such as 2.3*1000 == 2299.9999999999995
	total := int64(math.Floor(seconds*1000 + 1e-7))
	ms := total % 1000
	secs := total / 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", secs/3600, (secs%3600)/60, secs%60, ms)
}

// ParseTimestamp parses HH:MM:SS.mmm or MM:SS.mmm into seconds.
func ParseTimestamp(value string) (float64, error) {
	m := timestamp.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	var hours int64
	if m[1] != "" {
		h, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid hours in %q: %w", value, err)
		}
		hours = h
	}
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	secs, _ := strconv.ParseInt(m[3], 10, 64)
	ms, _ := strconv.ParseInt(m[4], 10, 64)
	if minutes > 59 || secs > 59 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	total := ((hours*60+minutes)*60+secs)*1000 + ms
	return float64(total) / 1000, nil
}

// Encode renders segments as caption text. Segments whose trimmed text is
// empty are skipped. Line breaks inside a segment's text become spaces.
func Encode(segments []Segment, header string) string {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}

	lines := []string{header, ""}
	for _, seg := range segments {
		text := cleanText(seg.Text)
		if text == "" {
			continue
		}
		lines = append(lines,
			FormatTimestamp(seg.Start)+" --> "+FormatTimestamp(seg.End),
			text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}

// Decode parses caption text back into segments. Header, NOTE, STYLE and
// REGION blocks are skipped, and so is any block without a timing line
// followed by text. Multi-line captions are joined with a single space.
// Malformed input yields an empty slice.
func Decode(content string) []Segment {
	segments := []Segment{}

	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	for _, block := range splitBlocks(content) {
		if seg, ok := decodeBlock(block); ok {
			segments = append(segments, seg)
		}
	}
	return segments
}

// PlainText returns the text of every cue, tags removed, joined by spaces.
func PlainText(content string) string {
	var parts []string
	for _, seg := range Decode(content) {
		text := strings.TrimSpace(cueTags.ReplaceAllString(seg.Text, ""))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// NonEmpty returns the segments whose trimmed text is not empty.
func NonEmpty(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		if cleanText(seg.Text) != "" {
			out = append(out, seg)
		}
	}
	return out
}

func cleanText(text string) string {
	return strings.TrimSpace(lineBreaks.Replace(text))
}

func splitBlocks(content string) [][]string {
	var blocks [][]string
	var current []string

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func decodeBlock(lines []string) (Segment, bool) {
	timingIdx := -1
	// a cue may carry an identifier line before its timing line
	for i := 0; i < len(lines) && i < 2; i++ {
		if timingLine.MatchString(lines[i]) {
			timingIdx = i
			break
		}
	}
	if timingIdx < 0 || timingIdx == len(lines)-1 {
		return Segment{}, false
	}
	if timingIdx == 1 && isMetaBlock(lines[0]) {
		return Segment{}, false
	}

	m := timingLine.FindStringSubmatch(lines[timingIdx])
	start, err := ParseTimestamp(m[1])
	if err != nil {
		return Segment{}, false
	}
	end, err := ParseTimestamp(m[2])
	if err != nil {
		return Segment{}, false
	}

	return Segment{
		Start: start,
		End:   end,
		Text:  strings.Join(lines[timingIdx+1:], " "),
	}, true
}

func isMetaBlock(first string) bool {
	for _, prefix := range []string{"WEBVTT", "NOTE", "STYLE", "REGION"} {
		if strings.HasPrefix(first, prefix) {
			return true
		}
	}
	return false
}
