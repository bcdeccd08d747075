package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ReadErrorPrefix starts every placeholder stored in place of a transcript
// that could not be read back.
const ReadErrorPrefix = "Error: Could not read file"

// ReadError builds the placeholder stored for an unreadable transcript.
func ReadError(err error) string {
	return fmt.Sprintf("%s content. %v", ReadErrorPrefix, err)
}

// IsReadError reports whether content is a read-error placeholder.
func IsReadError(content string) bool {
	return strings.HasPrefix(content, ReadErrorPrefix)
}

// Entry is one language's encoded transcript.
type Entry struct {
	Language string
	Content  string
}

// ContentMap maps language codes to encoded transcripts and remembers the
// order in which languages were added.
type ContentMap struct {
	entries []Entry
}

// NewContentMap builds a map from entries, in order.
func NewContentMap(entries ...Entry) ContentMap {
	var m ContentMap
	for _, e := range entries {
		m.Set(e.Language, e.Content)
	}
	return m
}

// Set stores content for lang. An existing language keeps its position.
func (m *ContentMap) Set(lang, content string) {
	for i := range m.entries {
		if m.entries[i].Language == lang {
			m.entries[i].Content = content
			return
		}
	}
	m.entries = append(m.entries, Entry{Language: lang, Content: content})
}

// Get returns the content stored for lang.
func (m ContentMap) Get(lang string) (string, bool) {
	for _, e := range m.entries {
		if e.Language == lang {
			return e.Content, true
		}
	}
	return "", false
}

// Languages returns the stored language codes in insertion order.
func (m ContentMap) Languages() []string {
	langs := make([]string, len(m.entries))
	for i, e := range m.entries {
		langs[i] = e.Language
	}
	return langs
}

// Entries returns a copy of the entries in insertion order.
func (m ContentMap) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of languages stored.
func (m ContentMap) Len() int {
	return len(m.entries)
}

// MarshalJSON writes the map as a JSON object with keys in insertion order.
func (m ContentMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Language)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Content)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of strings, keeping key order. A JSON
// null leaves the map empty.
func (m *ContentMap) UnmarshalJSON(data []byte) error {
	m.entries = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("transcript content: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("transcript content: unexpected key %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("transcript content for %q: %w", key, err)
		}
		m.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
