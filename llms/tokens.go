package llms

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// encodingOnce guards lazy construction of the shared tiktoken encoder:
// providers that don't return exact usage counts in their response body
// (Ollama, in particular) fall back to this estimate so per-model usage can
// still be recorded.
var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func sharedEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			encoding = nil
			return
		}
		encoding = enc
	})
	return encoding
}

// EstimateTokens counts tokens in text using the cl100k_base encoding,
// falling back to a char/4 heuristic if the encoder failed to load (e.g. no
// network access to fetch its vocabulary file).
func EstimateTokens(text string) int {
	if enc := sharedEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}

// EstimateMessageTokens sums EstimateTokens over every message's content.
func EstimateMessageTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
