package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
)

// GeminiClient implements the completion capability on the Google
// Gemini API. Gemini supports native structured output, so
// CompleteStructured passes the schema through instead of inlining it.
type GeminiClient struct {
	client  *genai.Client
	model   string
	temp    float32
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiClient creates a Gemini-backed completion client.
func NewGeminiClient(ctx context.Context, config *common.GeminiConfig, timeout time.Duration, logger arbor.ILogger) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)")
	}
	model := config.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Debug().Str("model", model).Msg("Gemini completion client initialized")
	return &GeminiClient{
		client:  client,
		model:   model,
		temp:    config.Temperature,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Complete generates a free-text completion.
func (g *GeminiClient) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	return g.generate(ctx, messages, nil)
}

// CompleteStructured constrains the response to a JSON schema using
// Gemini's native structured output.
func (g *GeminiClient) CompleteStructured(ctx context.Context, messages []interfaces.Message, schema map[string]any) (string, error) {
	return g.generate(ctx, messages, schema)
}

func (g *GeminiClient) generate(ctx context.Context, messages []interfaces.Message, schema map[string]any) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var system string
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if system == "" {
				system = msg.Content
			}
		case "assistant":
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
			})
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("at least one non-system message is required")
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temp),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseJsonSchema = schema
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini api call: %w", err)
	}

	var out strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part.Text != "" {
					out.WriteString(part.Text)
				}
			}
			if out.Len() > 0 {
				break
			}
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	return out.String(), nil
}

// Model returns the model identifier for cache keying.
func (g *GeminiClient) Model() string { return g.model }

// Close releases client resources; the genai client needs no explicit
// close.
func (g *GeminiClient) Close() error {
	g.client = nil
	return nil
}
