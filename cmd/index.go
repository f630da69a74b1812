package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/onecard/assistant/internal/app"
	"github.com/onecard/assistant/internal/config"
	"github.com/onecard/assistant/internal/log"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the knowledge-base index",
	Long: `Chunks the corpus, embeds the chunks and persists the index.
Without --rebuild an up-to-date persisted index is reused.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "re-embed even if a persisted index exists")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := log.New(log.Config{Level: slog.LevelInfo})

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	if err := a.Engine.BuildIndex(cmd.Context(), indexRebuild); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	fmt.Printf("Indexed %d chunks from %s into %s\n", a.Engine.Len(), cfg.CorpusPath, cfg.IndexDir)
	return nil
}
