package provider

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
)

// Mistral defaults. The Mistral API is OpenAI-compatible, so the
// provider reuses the OpenAI SDK with an overridden base URL.
const (
	DefaultMistralBaseURL = "https://api.mistral.ai/v1"
	DefaultMistralModel   = "mistral-large-latest"

	mistralTemperature = 0.7
	mistralMaxTokens   = 1000
)

// MistralConfig contains the parameters for a Mistral provider.
type MistralConfig struct {
	// APIKey is the bearer token. Empty means unconfigured.
	APIKey string

	// Model overrides DefaultMistralModel when non-empty.
	Model string

	// BaseURL overrides DefaultMistralBaseURL (tests).
	BaseURL string

	Logger log.Logger
}

// Mistral is the vendor completion provider, second in the chain.
type Mistral struct {
	apiKey string
	model  string
	client *openai.Client
	logger log.Logger
}

// NewMistral creates a Mistral provider.
func NewMistral(cfg MistralConfig) *Mistral {
	model := cfg.Model
	if model == "" {
		model = DefaultMistralModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultMistralBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	cc := openai.DefaultConfig(cfg.APIKey)
	cc.BaseURL = baseURL

	return &Mistral{
		apiKey: cfg.APIKey,
		model:  model,
		client: openai.NewClientWithConfig(cc),
		logger: logger,
	}
}

// Name implements chat.Provider.
func (m *Mistral) Name() string { return "mistral" }

// Configured implements chat.Provider.
func (m *Mistral) Configured() bool { return m.apiKey != "" }

// Complete implements chat.Provider.
func (m *Mistral) Complete(ctx context.Context, msgs []chat.Message) (string, error) {
	converted := make([]openai.ChatCompletionMessage, len(msgs))
	for i, msg := range msgs {
		converted[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    converted,
		Temperature: mistralTemperature,
		MaxTokens:   mistralMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("calling mistral: %w", err)
	}

	// SDK response shapes vary across compatible backends; probe defensively.
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoContent
	}
	return resp.Choices[0].Message.Content, nil
}
