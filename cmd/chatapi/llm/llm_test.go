package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doha-explorer/config"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "google"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(context.Background(), config.LLMConfig{Provider: "anthropic"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.LLMConfig{Provider: "openai"})
	assert.EqualError(t, err, "unsupported LLM provider: openai")
}

func TestNewClaudeUsesDefaultInstruction(t *testing.T) {
	c, err := New(context.Background(), config.LLMConfig{
		Provider:        "anthropic",
		ModelName:       "claude-sonnet-4-20250514",
		AnthropicAPIKey: "test-key",
	})
	require.NoError(t, err)

	cl, ok := c.(*claude)
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-20250514", cl.Model())
	assert.Contains(t, cl.instruction, "Doha Explorer")
	assert.Equal(t, 2048, cl.maxTokens)
}
