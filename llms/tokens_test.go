package llms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens_EmptyStringIsZero(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
}

func TestEstimateTokens_NonEmptyIsPositive(t *testing.T) {
	assert.Positive(t, EstimateTokens("the quick brown fox jumps over the lazy dog"))
}

func TestEstimateTokens_LongerTextEstimatesMore(t *testing.T) {
	short := EstimateTokens("hello")
	long := EstimateTokens("hello, this is a much longer sentence with many more words in it")
	assert.Greater(t, long, short)
}

func TestEstimateMessageTokens_SumsAcrossMessages(t *testing.T) {
	messages := []Message{
		{Role: RoleUser, Content: "hello there"},
		{Role: RoleAssistant, Content: "hi, how can I help you today?"},
	}

	total := EstimateMessageTokens(messages)
	assert.Equal(t, EstimateTokens(messages[0].Content)+EstimateTokens(messages[1].Content), total)
}
