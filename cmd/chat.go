package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onecard/assistant/internal/app"
	"github.com/onecard/assistant/internal/config"
	"github.com/onecard/assistant/internal/log"
	"github.com/onecard/assistant/internal/session"
)

var chatUserID string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&chatUserID, "user", "u1", "account to act on behalf of")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := log.New(log.Config{Level: slog.LevelWarn})

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()
	a.RegisterTools(chatUserID)

	sess := a.Sessions.Create(chatUserID, "cli")
	fmt.Printf("onecard assistant (user %s). Type 'exit' to quit.\n\n", chatUserID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		err := a.Sessions.WithSession(sess.ID, func(s *session.Session) error {
			result := a.Orchestrator.HandleTurn(ctx, s.UserID, line, &s.State)
			fmt.Printf("\n%s\n\n", result.ResponseText)
			return nil
		})
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	return scanner.Err()
}
