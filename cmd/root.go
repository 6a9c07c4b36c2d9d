// Package cmd provides the CLI commands for nexus.
//
// Commands:
//   - chat: interactive terminal chat session (also the default)
//   - serve: HTTP chat gateway
//   - version: build and configuration summary
//
// Signal handling and graceful shutdown are implemented for serve via
// context cancellation.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nexuslabs/nexus/internal/config"
	"github.com/nexuslabs/nexus/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Nexus - AI chat assistant",
	Long: `Nexus is an AI chat assistant with a provider fallback chain.

Running nexus without a subcommand starts the interactive chat session.`,
	SilenceUsage: true,
	RunE:         runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from loaded configuration.
func newLogger(cfg *config.Config) log.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}
