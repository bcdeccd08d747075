package metadata

var stopwords = buildStopwords(
	// English
	"the", "and", "a", "to", "of", "in", "that", "is", "it", "for", "on", "with", "as", "by",
	"at", "an", "this", "or", "be", "are", "was", "were", "i", "you", "he", "she", "we", "they",
	"my", "your", "his", "her", "its", "our", "their", "from", "up", "out", "if", "about", "into",
	"not", "have", "has", "had", "do", "does", "did", "will", "would", "shall", "should", "can",
	"could", "may", "might", "must", "also", "but", "so", "just", "like", "get", "go", "make",
	"know", "see", "say", "think", "time", "use", "work",
	// Nepali
	"को", "मा", "छ", "र", "हरु", "यो", "त्यो", "ने", "लागि", "पनि", "एक", "छन्", "गरी", "हो",
	"के", "छैन", "ले", "लाई", "बाट", "त", "भने", "अब", "कि", "संग", "अनि", "गर्नु", "भएको",
	"भए", "गरेको", "हुन्छ", "तर", "यी", "ती", "नै", "जब", "तब", "यहाँ", "त्यहाँ", "कसरी", "किन",
	"धेरै", "थोरै", "राम्रो", "नराम्रो",
)

func buildStopwords(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether the lowercased token is ignored by keyword
// extraction.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
