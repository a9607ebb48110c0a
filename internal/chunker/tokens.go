package chunker

// TokenCounter estimates the number of model tokens in a text.
type TokenCounter interface {
	Count(text string) int
}

// ApproxCounter approximates one token per 4 bytes of text. This is the
// single token-counting strategy used throughout the pipeline, so chunk
// boundaries are deterministic across environments. The approximation is
// coarse but stable; exact boundaries are tokenizer-dependent either way.
type ApproxCounter struct{}

// Count returns len(text)/4.
func (ApproxCounter) Count(text string) int {
	return len(text) / 4
}
