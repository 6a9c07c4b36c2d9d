package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/config"
	"github.com/nexuslabs/nexus/internal/gateway"
	"github.com/nexuslabs/nexus/internal/provider"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat gateway",
	Long: `Start the HTTP chat gateway.

The gateway answers POST /chat by trying OpenRouter, then Mistral, then
a built-in responder. It runs without any API keys configured; requests
are then answered by the built-in responder alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes and starts the chat gateway.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg)
	logger.Info("starting chat gateway", "version", AppVersion)

	openRouter := provider.NewOpenRouter(provider.OpenRouterConfig{
		APIKey:    cfg.OpenRouterAPIKey,
		Model:     cfg.OpenRouterModel,
		SiteURL:   cfg.SiteURL,
		SiteTitle: cfg.SiteTitle,
		Logger:    logger,
	})
	mistral := provider.NewMistral(provider.MistralConfig{
		APIKey: cfg.MistralAPIKey,
		Model:  cfg.MistralModel,
		Logger: logger,
	})

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	responder, err := chat.NewResponder(chat.Config{
		Providers: []chat.Provider{openRouter, mistral},
		Limiter:   limiter,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating responder: %w", err)
	}

	srv, err := gateway.NewServer(gateway.ServerConfig{
		Responder:   responder,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("creating gateway server: %w", err)
	}

	logger.Info("gateway ready",
		"addr", cfg.Addr,
		"providers", []string{openRouter.Name(), mistral.Name()},
		"openrouter_configured", openRouter.Configured(),
		"mistral_configured", mistral.Configured(),
	)

	if err := srv.Run(ctx, cfg.Addr); err != nil {
		return fmt.Errorf("running gateway: %w", err)
	}
	return nil
}
