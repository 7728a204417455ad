package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("explicit missing config file should error")
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIVersion != "2025-05-01-preview" {
		t.Fatalf("api version = %q", cfg.APIVersion)
	}
	if cfg.Poll.IntervalSeconds != 2 || cfg.Poll.MaxAttempts != 180 {
		t.Fatalf("poll defaults = %+v", cfg.Poll)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `endpoint: https://myresource.cognitiveservices.azure.com/
subscription_key: abc123
poll:
  interval_seconds: 1
  max_attempts: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "https://myresource.cognitiveservices.azure.com" {
		t.Fatalf("endpoint = %q, want trailing slash trimmed", cfg.Endpoint)
	}
	if cfg.SubscriptionKey != "abc123" {
		t.Fatalf("subscription key = %q", cfg.SubscriptionKey)
	}
	if cfg.Poll.MaxAttempts != 10 {
		t.Fatalf("max attempts = %d", cfg.Poll.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("HOST", "https://from-env.cognitiveservices.azure.com")
	t.Setenv("SUBSCRIPTION_KEY", "env-key")
	t.Setenv("API_VERSION", "2024-01-01")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Endpoint != "https://from-env.cognitiveservices.azure.com" {
		t.Fatalf("endpoint = %q", cfg.Endpoint)
	}
	if cfg.SubscriptionKey != "env-key" {
		t.Fatalf("subscription key = %q", cfg.SubscriptionKey)
	}
	if cfg.APIVersion != "2024-01-01" {
		t.Fatalf("api version = %q", cfg.APIVersion)
	}

	t.Run("prefixed names win", func(t *testing.T) {
		t.Setenv("CUMIGRATE_ENDPOINT", "https://prefixed.cognitiveservices.azure.com")
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Endpoint != "https://prefixed.cognitiveservices.azure.com" {
			t.Fatalf("endpoint = %q", cfg.Endpoint)
		}
	})
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty endpoint must fail validation")
	}
	cfg.Endpoint = "https://x"
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty subscription key must fail validation")
	}
	cfg.SubscriptionKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("MY_SECRET", "s3cret")
	if got := ResolveEnvVars("key=${MY_SECRET}"); got != "key=s3cret" {
		t.Fatalf("got %q", got)
	}
	if got := ResolveEnvVars("no refs"); got != "no refs" {
		t.Fatalf("got %q", got)
	}
	if got := ResolveEnvVars("${UNSET_VAR_XYZ}"); got != "" {
		t.Fatalf("got %q, want empty for unset var", got)
	}
}
