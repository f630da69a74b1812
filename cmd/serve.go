package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onecard/assistant/api"
	"github.com/onecard/assistant/internal/app"
	"github.com/onecard/assistant/internal/config"
	"github.com/onecard/assistant/internal/log"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default "+api.DefaultAddr+")")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: true})

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	// Build the index up front so the first request doesn't pay for it.
	if err := a.Engine.BuildIndex(ctx, false); err != nil {
		logger.Warn("index build failed, retrieval degraded", "error", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ServerAddr
	}
	srv := api.NewServer(a.Sessions, a.Orchestrator, logger)
	return srv.Run(ctx, addr)
}
