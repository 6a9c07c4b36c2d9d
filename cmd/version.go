package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nexuslabs/nexus/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	fmt.Printf("Nexus %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Gateway address: %s\n", cfg.Addr)
	fmt.Printf("  Gateway URL: %s\n", cfg.GatewayURL)
	fmt.Printf("  OpenRouter model: %s\n", cfg.OpenRouterModel)
	fmt.Printf("  Mistral model: %s\n", cfg.MistralModel)
	fmt.Printf("  History database: %s\n", cfg.HistoryPath)
	printKeyStatus("OPENROUTER_API_KEY")
	printKeyStatus("MISTRAL_API_KEY")
	fmt.Println()
	fmt.Println("Without API keys the gateway answers from its built-in responder.")

	return nil
}

// printKeyStatus reports whether an API key is set without printing it.
func printKeyStatus(envVar string) {
	if os.Getenv(envVar) != "" {
		fmt.Printf("  %s: configured\n", envVar)
		return
	}
	fmt.Printf("  %s: not set\n", envVar)
}
