package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
)

// ClaudeClient implements the completion capability on the Anthropic
// API. OpenRouter speaks the same wire protocol, so the OpenRouter
// provider reuses this client with a base-URL override.
type ClaudeClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	temp      float32
	timeout   time.Duration
	logger    arbor.ILogger
}

// NewClaudeClient creates a Claude-backed completion client.
func NewClaudeClient(config *common.ClaudeConfig, timeout time.Duration, logger arbor.ILogger) (*ClaudeClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key)")
	}
	model := config.Model
	if model == "" {
		model = "claude-haiku-4-5"
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))
	logger.Debug().
		Str("model", model).
		Int("max_tokens", maxTokens).
		Msg("Claude completion client initialized")

	return &ClaudeClient{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		temp:      config.Temperature,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// NewOpenRouterClient creates a completion client speaking to
// OpenRouter through the Anthropic-compatible endpoint.
func NewOpenRouterClient(config *common.OpenRouterConfig, timeout time.Duration, logger arbor.ILogger) (*ClaudeClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenRouter API key is required (set OPENROUTER_API_KEY or openrouter.api_key)")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api"
	}
	model := config.Model
	if model == "" {
		model = "anthropic/claude-3.5-haiku"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(baseURL),
	}
	if routing := openRouterRouting(config); routing != nil {
		if raw, err := json.Marshal(routing); err == nil {
			opts = append(opts, option.WithJSONSet("provider", json.RawMessage(raw)))
		}
	}

	logger.Debug().
		Str("model", model).
		Str("base_url", baseURL).
		Str("provider", config.Provider).
		Msg("OpenRouter completion client initialized")

	return &ClaudeClient{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: 8192,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// openRouterRouting builds OpenRouter's provider-routing block from
// config, or nil when no routing preference is set.
func openRouterRouting(config *common.OpenRouterConfig) map[string]any {
	routing := map[string]any{}
	if len(config.ProviderOrder) > 0 {
		routing["order"] = config.ProviderOrder
	} else if config.Provider != "" {
		routing["order"] = []string{config.Provider}
	}
	if !config.AllowFallbacks {
		routing["allow_fallbacks"] = false
	}
	if config.RequireParameters {
		routing["require_parameters"] = true
	}
	if len(routing) == 0 {
		return nil
	}
	return routing
}

// Complete generates a free-text completion.
func (c *ClaudeClient) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params, err := c.buildParams(messages)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("claude api call: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("empty response from claude")
	}
	return out.String(), nil
}

// CompleteStructured appends the schema to the prompt; the response is
// parsed by the adapter's robust JSON extraction.
func (c *ClaudeClient) CompleteStructured(ctx context.Context, messages []interfaces.Message, schema map[string]any) (string, error) {
	if len(messages) > 0 && schema != nil {
		if raw, err := json.Marshal(schema); err == nil {
			last := &messages[len(messages)-1]
			last.Content += "\n\nRespond with JSON matching this schema exactly:\n" + string(raw)
		}
	}
	return c.Complete(ctx, messages)
}

func (c *ClaudeClient) buildParams(messages []interfaces.Message) (anthropic.MessageNewParams, error) {
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("messages cannot be empty")
	}

	var system string
	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if system == "" {
				system = msg.Content
			}
		case "assistant":
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if len(converted) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("at least one non-system message is required")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages:  converted,
	}
	if c.temp > 0 {
		params.Temperature = anthropic.Float(float64(c.temp))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params, nil
}

// Model returns the model identifier for cache keying.
func (c *ClaudeClient) Model() string { return c.model }

// Close releases client resources (none for the HTTP client).
func (c *ClaudeClient) Close() error { return nil }
