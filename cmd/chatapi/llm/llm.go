package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"doha-explorer/config"
)

// DefaultSystemInstruction 은 설정에 system_instruction 이 없을 때 쓰는 안내 문구다.
const DefaultSystemInstruction = `
You are Doha Explorer, a friendly local guide for visitors of Doha, Qatar.
Answer questions about places to visit, food, culture, transport, events and practical travel tips.
Keep answers concise and well structured; Markdown lists and bold text are welcome.
When you are not sure that information is current (opening hours, prices, schedules), say so and suggest checking an official source.
Politely steer unrelated questions back to exploring Doha and Qatar.
`

var (
	// ErrEmptyResponse 는 모델이 텍스트 없이 응답했을 때 반환된다.
	ErrEmptyResponse = errors.New("llm returned an empty response")
	ErrMissingAPIKey = errors.New("llm api key is not set")
)

type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Result 는 한 번의 생성 호출 결과다.
type Result struct {
	Text         string
	Usage        TokenUsage
	ModelName    string
	ModelVersion string
}

// Client 는 채팅 API 가 사용하는 텍스트 생성 백엔드다.
type Client interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
	Model() string
}

// New 는 provider 설정에 맞는 백엔드를 만든다.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	instruction := strings.TrimSpace(cfg.SystemInstruction)
	if instruction == "" {
		instruction = strings.TrimSpace(DefaultSystemInstruction)
	}

	switch cfg.Provider {
	case "google", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingAPIKey)
		}
		return newGemini(ctx, cfg.GeminiAPIKey, cfg.ModelName, instruction, cfg.MaxTokens)
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", ErrMissingAPIKey)
		}
		return newClaude(cfg.AnthropicAPIKey, cfg.ModelName, instruction, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
