package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
)

// NewCompletionClient builds the provider client selected by config.
func NewCompletionClient(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.CompletionClient, error) {
	timeout := config.LLM.Timeout

	switch config.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		return NewClaudeClient(&config.Claude, timeout, logger)
	case common.LLMProviderGemini:
		return NewGeminiClient(ctx, &config.Gemini, timeout, logger)
	case common.LLMProviderOpenRouter:
		return NewOpenRouterClient(&config.OpenRouter, timeout, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.LLM.DefaultProvider)
	}
}
