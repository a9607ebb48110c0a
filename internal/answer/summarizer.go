package answer

import "strings"

const (
	// DefaultSummaryLength caps extractive summaries, in characters.
	DefaultSummaryLength = 150

	minSummarySentence = 20
)

// SummarizeChunks produces a short extractive summary: leading sentences
// are taken from each chunk in order until maxLength characters are
// collected. Sentences of minSummarySentence characters or fewer are
// skipped. maxLength <= 0 uses DefaultSummaryLength.
func SummarizeChunks(chunks []string, maxLength int) string {
	if len(chunks) == 0 {
		return ""
	}
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}

	var sentences []string
	total := 0
	for _, chunk := range chunks {
		for _, sentence := range strings.Split(chunk, ".") {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" || len(sentence) <= minSummarySentence {
				continue
			}
			if total+len(sentence) > maxLength {
				break
			}
			sentences = append(sentences, sentence)
			total += len(sentence)
		}
		if total >= maxLength {
			break
		}
	}

	summary := strings.Join(sentences, ". ")
	if summary != "" && !strings.HasSuffix(summary, ".") {
		summary += "."
	}
	return summary
}
