package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type claude struct {
	client      anthropic.Client
	model       string
	instruction string
	maxTokens   int
}

func newClaude(apiKey, model, instruction string, maxTokens int) *claude {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &claude{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		instruction: instruction,
		maxTokens:   maxTokens,
	}
}

func (c *claude) Model() string { return c.model }

func (c *claude) Generate(ctx context.Context, prompt string) (*Result, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{{Text: c.instruction}},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &Result{
		Text:         text,
		ModelName:    c.model,
		ModelVersion: string(resp.Model),
		Usage: TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
