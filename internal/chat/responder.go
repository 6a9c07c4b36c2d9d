// Package chat implements the conversation contract and the provider
// fallback chain behind the gateway's /chat endpoint.
//
// A Responder tries each configured completion provider in priority
// order and degrades to a deterministic local reply when none of them
// yields a usable completion. Provider failures are absorbed, never
// propagated: for a well-formed conversation a Responder always produces
// exactly one assistant message.
package chat

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nexuslabs/nexus/internal/log"
)

// Persona is the system message synthesized in front of every outbound
// conversation. It is never persisted.
const Persona = "You are Nexus, an advanced AI assistant designed to help " +
	"with a wide variety of tasks and questions. Be helpful, concise and safe."

// ErrNoMessages indicates the caller sent an absent or empty conversation.
var ErrNoMessages = errors.New("messages array is required and cannot be empty")

// Provider is an upstream completion source. Implementations live in
// internal/provider; the Responder only needs this capability.
type Provider interface {
	// Name identifies the provider in log output.
	Name() string

	// Configured reports whether the provider's precondition (usually an
	// API key) is satisfied. Unconfigured providers are skipped.
	Configured() bool

	// Complete returns a completion for the conversation. An empty string
	// with a nil error is treated as a failure by the caller.
	Complete(ctx context.Context, msgs []Message) (string, error)
}

// Config contains all parameters for a Responder.
type Config struct {
	// Providers are tried strictly in slice order.
	Providers []Provider

	// Limiter optionally guards external provider calls. When the limiter
	// has no token available the chain skips straight to the local
	// responder rather than waiting or failing. Nil disables limiting.
	Limiter *rate.Limiter

	Logger log.Logger
}

func (cfg Config) validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Responder owns the ordered provider chain. It is stateless across
// requests and safe for concurrent use.
type Responder struct {
	providers []Provider
	limiter   *rate.Limiter
	logger    log.Logger
}

// NewResponder creates a Responder from the given configuration.
func NewResponder(cfg Config) (*Responder, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Responder{
		providers: cfg.Providers,
		limiter:   cfg.Limiter,
		logger:    cfg.Logger,
	}, nil
}

// Reply produces one assistant message for the conversation.
//
// The input is validated (ErrNoMessages), prefixed with the persona
// system message, and offered to each configured provider in order. Any
// transport failure, non-success status, or empty completion logs a
// warning and falls through to the next provider. The local keyword
// responder terminates the chain and always succeeds, so Reply returns
// an error only for empty input.
func (r *Responder) Reply(ctx context.Context, msgs []Message) (Message, error) {
	if len(msgs) == 0 {
		return Message{}, ErrNoMessages
	}

	outbound := make([]Message, 0, len(msgs)+1)
	outbound = append(outbound, Message{Role: RoleSystem, Content: Persona})
	outbound = append(outbound, msgs...)

	if r.allowUpstream() {
		for _, p := range r.providers {
			if !p.Configured() {
				continue
			}
			text, err := p.Complete(ctx, outbound)
			if err != nil {
				r.logger.Warn("provider call failed, falling back",
					"provider", p.Name(), "error", err)
				continue
			}
			if strings.TrimSpace(text) == "" {
				r.logger.Warn("provider returned no content, falling back",
					"provider", p.Name())
				continue
			}
			return Message{Role: RoleAssistant, Content: text}, nil
		}
	}

	reply := LocalReply(trailingUserText(msgs))
	r.logger.Debug("served local fallback reply")
	return Message{Role: RoleAssistant, Content: reply}, nil
}

// allowUpstream consumes a rate limiter token when limiting is enabled.
// Exhaustion degrades to the local responder instead of surfacing an error.
func (r *Responder) allowUpstream() bool {
	if r.limiter == nil {
		return true
	}
	if r.limiter.Allow() {
		return true
	}
	r.logger.Warn("provider rate limit exhausted, serving local reply")
	return false
}

// trailingUserText returns the content of the last message in the
// conversation, which drives local keyword routing.
func trailingUserText(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}
