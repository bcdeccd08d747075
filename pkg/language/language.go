// Package language maps detected language labels onto the canonical codes
// used as transcript keys.
package language

import (
	"strings"

	"golang.org/x/text/language"
)

// Canonical language codes.
const (
	English = "en"
	Nepali  = "ne"
)

// Supported lists the canonical codes in preference order.
var Supported = []string{English, Nepali}

var aliases = map[string]string{
	"english": English,
	"en":      English,
	"nepali":  Nepali,
	"ne":      Nepali,
}

// Standardize maps a raw label such as "English" or "en-US" to its canonical
// code. Unknown labels come back lowercased.
func Standardize(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	if code, ok := aliases[label]; ok {
		return code
	}

	// region or script subtags of a supported language
	if strings.ContainsAny(label, "-_") {
		if tag, err := language.Parse(label); err == nil {
			base, _ := tag.Base()
			if code, ok := aliases[base.String()]; ok {
				return code
			}
		}
	}
	return label
}

// Targets returns the languages a transcript in source should be translated
// into.
func Targets(source string) []string {
	switch source {
	case English:
		return []string{Nepali}
	case Nepali:
		return []string{English}
	default:
		return []string{English, Nepali}
	}
}

// IsSupported reports whether code is one of the canonical codes.
func IsSupported(code string) bool {
	return code == English || code == Nepali
}
