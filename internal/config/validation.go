package config

import (
	"fmt"
	"os"
)

// Validate checks the configuration for correctness.
// Returns a sentinel error (wrapped with context) on the first violation.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderMock:
		// fully offline, nothing external required
	case ProviderGoogleAI:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY required for provider %q", ErrMissingAPIKey, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q (supported: %s, %s)", ErrInvalidProvider, c.Provider, ProviderMock, ProviderGoogleAI)
	}

	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidChunkSize, c.ChunkSize, MaxChunkSize)
	}

	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("%w: %g (must be within [0,1])", ErrInvalidMinScore, c.MinScore)
	}

	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: %d (must be 1-50)", ErrInvalidTopK, c.TopK)
	}

	if !isSixDigits(c.OTPCode) {
		return fmt.Errorf("%w: must be exactly 6 digits", ErrInvalidOTPCode)
	}

	if c.OTPMaxAttempts < 1 || c.OTPMaxAttempts > 10 {
		return fmt.Errorf("%w: %d (must be 1-10)", ErrInvalidOTPAttempts, c.OTPMaxAttempts)
	}

	return nil
}

// isSixDigits reports whether s is exactly six ASCII digits.
func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
