// Package provider implements the upstream completion sources the
// gateway's fallback chain draws from.
//
// Each provider satisfies chat.Provider: it reports whether its
// configuration precondition holds (an API key is present) and attempts
// a single completion for a conversation. Providers never retry; failure
// handling belongs to the chain.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
)

// OpenRouter defaults.
const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "mistralai/mistral-7b-instruct:free"
)

// ErrNoContent indicates the upstream response carried no usable
// completion text.
var ErrNoContent = errors.New("response did not contain content")

// OpenRouterConfig contains the parameters for an OpenRouter provider.
type OpenRouterConfig struct {
	// APIKey is the bearer token. Empty means the provider is
	// unconfigured and will be skipped by the chain.
	APIKey string

	// Model overrides DefaultOpenRouterModel when non-empty.
	Model string

	// SiteURL and SiteTitle populate the optional HTTP-Referer and
	// X-Title attribution headers.
	SiteURL   string
	SiteTitle string

	// BaseURL overrides DefaultOpenRouterBaseURL (tests).
	BaseURL string

	Logger log.Logger
}

// OpenRouter is the hosted multi-model routing provider, first in the
// chain. It speaks the OpenAI chat-completions shape over REST.
type OpenRouter struct {
	apiKey    string
	model     string
	siteURL   string
	siteTitle string
	client    *resty.Client
	logger    log.Logger
}

// NewOpenRouter creates an OpenRouter provider. No request timeout is
// applied beyond the platform default; the caller's context bounds the
// call.
func NewOpenRouter(cfg OpenRouterConfig) *OpenRouter {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenRouterModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	return &OpenRouter{
		apiKey:    cfg.APIKey,
		model:     model,
		siteURL:   cfg.SiteURL,
		siteTitle: cfg.SiteTitle,
		client:    resty.New().SetBaseURL(baseURL),
		logger:    logger,
	}
}

// Name implements chat.Provider.
func (o *OpenRouter) Name() string { return "openrouter" }

// Configured implements chat.Provider.
func (o *OpenRouter) Configured() bool { return o.apiKey != "" }

// completionRequest is the OpenAI-style chat-completions request body.
type completionRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
}

// completionResponse probes the response defensively: the completion may
// arrive as choices[0].message.content or as choices[0].text.
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// content returns the first usable completion text, if any.
func (r *completionResponse) content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	if c := r.Choices[0].Message.Content; c != "" {
		return c
	}
	return r.Choices[0].Text
}

// Complete implements chat.Provider.
func (o *OpenRouter) Complete(ctx context.Context, msgs []chat.Message) (string, error) {
	req := o.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+o.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(completionRequest{Model: o.model, Messages: msgs})
	if o.siteURL != "" {
		req.SetHeader("HTTP-Referer", o.siteURL)
	}
	if o.siteTitle != "" {
		req.SetHeader("X-Title", o.siteTitle)
	}

	var result completionResponse
	resp, err := req.SetResult(&result).Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("calling openrouter: %w", err)
	}
	if resp.IsError() {
		o.logger.Warn("openrouter returned non-ok status",
			"status", resp.StatusCode(), "body", resp.String())
		return "", fmt.Errorf("openrouter status %d", resp.StatusCode())
	}

	content := result.content()
	if content == "" {
		return "", ErrNoContent
	}
	return content, nil
}
