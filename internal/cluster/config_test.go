package cluster

import (
	"errors"
	"testing"

	"github.com/kozaktomas/photo-grouper/internal/fingerprint"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"any length", func(c *Config) { c.HashBits = 0 }, false},
		{"zero threshold", func(c *Config) { c.SimilarityThreshold = 0 }, false},
		{"bucket with tone", func(c *Config) { c.ColorStrategy = StrategyBucket; c.BucketWithTone = true }, false},
		{"negative bits", func(c *Config) { c.HashBits = -1 }, true},
		{"negative threshold", func(c *Config) { c.SimilarityThreshold = -1 }, true},
		{"negative color threshold", func(c *Config) { c.ColorThreshold = -0.5 }, true},
		{"zero bucket", func(c *Config) { c.BucketSize = 0 }, true},
		{"unknown policy", func(c *Config) { c.Policy = "worst-fit" }, true},
		{"empty strategy", func(c *Config) { c.ColorStrategy = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{fingerprint.ErrInvalidFormat, KindInvalidFormat},
		{fingerprint.ErrInvalidFingerprint, KindInvalidFingerprint},
		{errors.New("boom"), KindInternal},
		{NewItemErrorKind("x", KindFetchFailed, errors.New("404")), KindFetchFailed},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %s; want %s", tt.err, got, tt.want)
		}
	}
}
