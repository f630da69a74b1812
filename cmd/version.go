package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/onecard/assistant/internal/config"
)

// Version information, injected at build time via ldflags.
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(*cobra.Command, []string) error {
		return runVersion()
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("onecard %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Embedder: %s\n", cfg.EmbedderModel)
	fmt.Printf("  Corpus: %s\n", cfg.CorpusPath)

	if cfg.Provider == config.ProviderGoogleAI {
		key := os.Getenv("GEMINI_API_KEY")
		if key != "" && len(key) >= 8 {
			fmt.Printf("  GEMINI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
		} else {
			fmt.Println("  GEMINI_API_KEY: Not set")
		}
	}
	return nil
}
