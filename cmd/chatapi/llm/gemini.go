package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

type gemini struct {
	client      *genai.Client
	model       string
	instruction string
	maxTokens   int
}

func newGemini(ctx context.Context, apiKey, model, instruction string, maxTokens int) (*gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &gemini{client: client, model: model, instruction: instruction, maxTokens: maxTokens}, nil
}

func (g *gemini) Model() string { return g.model }

func (g *gemini) Generate(ctx context.Context, prompt string) (*Result, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: g.instruction}}},
	}
	if g.maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(g.maxTokens)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), genCfg)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}

	out := &Result{
		Text:         text,
		ModelName:    g.model,
		ModelVersion: result.ModelVersion,
	}
	if result.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}
