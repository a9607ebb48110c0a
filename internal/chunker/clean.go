package chunker

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Keep word characters, whitespace, and sentence punctuation; drop the rest.
	specialCharsRe = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()-]`)
)

// CleanText collapses whitespace runs to single spaces, strips characters
// other than word characters and basic punctuation, and trims the result.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialCharsRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
