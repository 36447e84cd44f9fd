package prompts

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer counts and truncates text in model tokens.
type Tokenizer interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

// truncationMarker is appended to text cut to a token budget.
const truncationMarker = "..."

// TiktokenTokenizer uses the cl100k_base encoding, loaded on first use. If the
// encoding cannot be loaded it behaves like HeuristicTokenizer.
type TiktokenTokenizer struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (t *TiktokenTokenizer) encoding() *tiktoken.Tiktoken {
	t.once.Do(func() {
		if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
			t.enc = enc
		}
	})
	return t.enc
}

// Count returns the number of tokens in text.
func (t *TiktokenTokenizer) Count(text string) int {
	if enc := t.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return HeuristicTokenizer{}.Count(text)
}

// Truncate cuts text to at most maxTokens tokens. maxTokens <= 0 disables truncation.
func (t *TiktokenTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	enc := t.encoding()
	if enc == nil {
		return HeuristicTokenizer{}.Truncate(text, maxTokens)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens]) + truncationMarker
}

// HeuristicTokenizer estimates four runes per token.
type HeuristicTokenizer struct{}

// Count returns max(runes/4, words), and at least 1 for non-blank text.
func (HeuristicTokenizer) Count(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	estimate := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}

// Truncate cuts text to roughly maxTokens*4 runes.
func (HeuristicTokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	runes := []rune(text)
	limit := maxTokens * 4
	if limit >= len(runes) {
		return text
	}
	return string(runes[:limit]) + truncationMarker
}
