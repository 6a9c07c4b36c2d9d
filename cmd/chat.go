package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexuslabs/nexus/internal/config"
	"github.com/nexuslabs/nexus/internal/session"
	"github.com/nexuslabs/nexus/internal/storage"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)

	store, err := storage.OpenSQLite(cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("closing history database", "error", closeErr)
		}
	}()

	controller, err := session.NewController(session.Config{
		Store:     store,
		Transport: session.NewClient(cfg.GatewayURL, logger),
		Logger:    logger,
		Timeout:   cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	fmt.Printf("Nexus %s (gateway: %s)\n", AppVersion, cfg.GatewayURL)
	fmt.Println("Type /help for commands, Ctrl+D to exit.")
	fmt.Println()
	printTranscript(controller.Messages())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleCommand(ctx, input, controller) {
				break
			}
			continue
		}

		exchange(controller, func() error {
			return controller.Send(ctx, input)
		})
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// exchange runs one send and prints the resulting transcript entry.
// Transport failures already produced an error notice in the
// transcript, so they are not reported twice.
func exchange(c *session.Controller, send func() error) {
	if err := send(); err != nil && errors.Is(err, session.ErrBusy) {
		fmt.Println("Still waiting for the previous reply.")
		return
	}

	msgs := c.Messages()
	if len(msgs) == 0 {
		return
	}
	printEntry(msgs[len(msgs)-1])
}

// handleCommand handles slash commands, returns true to exit.
func handleCommand(ctx context.Context, input string, c *session.Controller) bool {
	switch strings.Fields(input)[0] {
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /retry       Show your last message for resending")
		fmt.Println("  /regenerate  Regenerate the last reply")
		fmt.Println("  /new         Start a fresh conversation")
		fmt.Println("  /help        Show this help")
		fmt.Println("  /exit, /quit Exit")
		fmt.Println()

	case "/retry":
		text, ok := c.RetryLast()
		if !ok {
			fmt.Println("Nothing to retry yet.")
			break
		}
		fmt.Printf("Resending: %s\n", text)
		exchange(c, func() error { return c.Send(ctx, text) })

	case "/regenerate":
		ok, err := c.Regenerate(ctx)
		if errors.Is(err, session.ErrBusy) {
			fmt.Println("Still waiting for the previous reply.")
			break
		}
		if !ok {
			fmt.Println("Nothing to regenerate yet.")
			break
		}
		msgs := c.Messages()
		printEntry(msgs[len(msgs)-1])

	case "/new":
		c.Clear()
		fmt.Println("Started a new conversation.")
		printTranscript(c.Messages())

	case "/exit", "/quit":
		fmt.Println("Goodbye!")
		return true

	default:
		fmt.Printf("Unknown command: %s\n", input)
		fmt.Println("Type /help to see available commands")
	}
	return false
}

func printTranscript(msgs []session.Displayed) {
	for _, m := range msgs {
		printEntry(m)
	}
}

func printEntry(m session.Displayed) {
	switch {
	case m.Kind == session.KindUser:
		// The user already saw their own input.
	case m.Error:
		fmt.Printf("Nexus [error]: %s\n", m.Content)
	default:
		fmt.Printf("Nexus: %s\n", m.Content)
	}
}
