// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (ONECARD_* prefix, runtime override)
//  2. Config file (~/.onecard/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: provider (mock or googleai), model and embedder selection, timeout
//   - Retrieval: corpus path, index directory, chunk size, minimum score
//   - Verification: OTP code and attempt budget for gated actions
//   - Audit: local append-only audit log
//   - Server: HTTP listen address
//
// Validation happens at Load time with sentinel errors so callers can use
// errors.Is() for Go-idiomatic checks.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidChunkSize indicates the retrieval chunk size is out of range.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidMinScore indicates the retrieval minimum score is out of range.
	ErrInvalidMinScore = errors.New("invalid minimum score")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidOTPCode indicates the configured OTP code is not 6 digits.
	ErrInvalidOTPCode = errors.New("invalid OTP code")

	// ErrInvalidOTPAttempts indicates the OTP attempt budget is out of range.
	ErrInvalidOTPAttempts = errors.New("invalid OTP attempt budget")
)

// AI provider identifiers used in Config.Provider.
const (
	// ProviderMock runs fully offline: heuristic routing, deterministic
	// concept embeddings, templated responses.
	ProviderMock = "mock"

	// ProviderGoogleAI uses the Google AI plugin for generation and
	// embeddings. Requires GEMINI_API_KEY.
	ProviderGoogleAI = "googleai"
)

// Defaults for retrieval and verification settings.
const (
	// DefaultModelName is the generation model used in googleai mode.
	DefaultModelName = "googleai/gemini-2.5-flash"

	// DefaultEmbedderModel is the embedding model used in googleai mode.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultChunkSize is the approximate token budget per passage chunk.
	DefaultChunkSize = 300

	// DefaultMinScore is the minimum cosine similarity for a semantic hit.
	DefaultMinScore = 0.25

	// DefaultTopK is the number of passages returned per search.
	DefaultTopK = 3

	// DefaultOTPCode is the prototype verification code.
	DefaultOTPCode = "123456"

	// DefaultOTPMaxAttempts is the bounded retry budget for OTP entry.
	DefaultOTPMaxAttempts = 3

	// MaxChunkSize bounds chunk_size to keep passages embeddable.
	MaxChunkSize = 2000
)

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider      string `mapstructure:"provider" json:"provider"`
	ModelName     string `mapstructure:"model_name" json:"model_name"`
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// GenerateTimeoutMS bounds a single call to the generation backend.
	// On timeout the turn falls back to the ambiguous response.
	GenerateTimeoutMS int `mapstructure:"generate_timeout_ms" json:"generate_timeout_ms"`

	// NaturalAnswers rewrites knowledge answers through the model instead of
	// returning the raw passage. Only effective with the googleai provider.
	NaturalAnswers bool `mapstructure:"natural_answers" json:"natural_answers"`

	// Retrieval configuration
	CorpusPath string  `mapstructure:"corpus_path" json:"corpus_path"`
	IndexDir   string  `mapstructure:"index_dir" json:"index_dir"`
	ChunkSize  int     `mapstructure:"chunk_size" json:"chunk_size"`
	MinScore   float64 `mapstructure:"min_score" json:"min_score"`
	TopK       int     `mapstructure:"top_k" json:"top_k"`

	// Verification configuration for OTP-gated actions
	OTPCode        string `mapstructure:"otp_code" json:"-"` // never serialized
	OTPMaxAttempts int    `mapstructure:"otp_max_attempts" json:"otp_max_attempts"`

	// Audit configuration
	AuditEnabled bool   `mapstructure:"audit_enabled" json:"audit_enabled"`
	AuditPath    string `mapstructure:"audit_path" json:"audit_path"`

	// Server configuration (serve mode only)
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Optional Postgres passage index (empty = in-memory index)
	DatabaseURL string `mapstructure:"database_url" json:"-"` // may embed credentials
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".onecard")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)

	v.SetEnvPrefix("ONECARD")
	v.AutomaticEnv()
	// Secrets stay out of config files.
	_ = v.BindEnv("otp_code", "ONECARD_OTP_CODE")
	_ = v.BindEnv("database_url", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied and no file or
// environment lookup. Used by tests and as a base for programmatic setup.
func Default() *Config {
	return &Config{
		Provider:          ProviderMock,
		ModelName:         DefaultModelName,
		EmbedderModel:     DefaultEmbedderModel,
		GenerateTimeoutMS: 10000,
		NaturalAnswers:    false,
		CorpusPath:        "data/knowledge_base.md",
		IndexDir:          ".onecard-index",
		ChunkSize:         DefaultChunkSize,
		MinScore:          DefaultMinScore,
		TopK:              DefaultTopK,
		OTPCode:           DefaultOTPCode,
		OTPMaxAttempts:    DefaultOTPMaxAttempts,
		AuditEnabled:      false,
		AuditPath:         "audit_log.jsonl",
		ServerAddr:        "127.0.0.1:8080",
	}
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("provider", ProviderMock)
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("generate_timeout_ms", 10000)
	v.SetDefault("natural_answers", false)

	v.SetDefault("corpus_path", "data/knowledge_base.md")
	v.SetDefault("index_dir", filepath.Join(configDir, "index"))
	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("min_score", DefaultMinScore)
	v.SetDefault("top_k", DefaultTopK)

	v.SetDefault("otp_code", DefaultOTPCode)
	v.SetDefault("otp_max_attempts", DefaultOTPMaxAttempts)

	v.SetDefault("audit_enabled", false)
	v.SetDefault("audit_path", filepath.Join(configDir, "audit_log.jsonl"))

	v.SetDefault("server_addr", "127.0.0.1:8080")
}
