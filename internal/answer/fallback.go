package answer

import (
	"strings"
	"unicode/utf8"
)

const fallbackContextLimit = 200

// FallbackAnswer builds an answer without an LLM: sentences from the
// context that share a keyword (longer than 3 characters) with the
// question, capped at two. With no keyword overlap it returns the start
// of the context verbatim.
func FallbackAnswer(contextText, question string) string {
	var keywords []string
	for _, w := range strings.Fields(strings.ToLower(question)) {
		if len(w) > 3 {
			keywords = append(keywords, w)
		}
	}

	var relevant []string
	for _, sentence := range strings.Split(contextText, ".") {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				relevant = append(relevant, strings.TrimSpace(sentence))
				break
			}
		}
		if len(relevant) == 2 {
			break
		}
	}
	if len(relevant) > 0 {
		return strings.Join(relevant, ". ") + "."
	}

	// Truncate by runes, not bytes, so a multi-byte character at the
	// boundary is dropped whole rather than split.
	snippet := contextText
	if utf8.RuneCountInString(snippet) > fallbackContextLimit {
		snippet = string([]rune(snippet)[:fallbackContextLimit])
	}
	return "Based on the provided context: " + snippet + "..."
}
