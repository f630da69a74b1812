package config

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: nil,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "anthropic" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.ChunkSize = 0 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "chunk size over limit",
			mutate:  func(c *Config) { c.ChunkSize = MaxChunkSize + 1 },
			wantErr: ErrInvalidChunkSize,
		},
		{
			name:    "negative min score",
			mutate:  func(c *Config) { c.MinScore = -0.1 },
			wantErr: ErrInvalidMinScore,
		},
		{
			name:    "min score above one",
			mutate:  func(c *Config) { c.MinScore = 1.5 },
			wantErr: ErrInvalidMinScore,
		},
		{
			name:    "zero top-k",
			mutate:  func(c *Config) { c.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "short OTP code",
			mutate:  func(c *Config) { c.OTPCode = "12345" },
			wantErr: ErrInvalidOTPCode,
		},
		{
			name:    "non-numeric OTP code",
			mutate:  func(c *Config) { c.OTPCode = "12345a" },
			wantErr: ErrInvalidOTPCode,
		},
		{
			name:    "zero OTP attempts",
			mutate:  func(c *Config) { c.OTPMaxAttempts = 0 },
			wantErr: ErrInvalidOTPAttempts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestIsSixDigits(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12 456", false},
		{"abcdef", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isSixDigits(tt.in); got != tt.want {
			t.Errorf("isSixDigits(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
