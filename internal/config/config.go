// Package config loads tool configuration from file, environment, and flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings shared by every command that talks to the
// Content Understanding service.
type Config struct {
	// Endpoint is the service host, e.g. https://myresource.cognitiveservices.azure.com
	Endpoint string `mapstructure:"endpoint"`

	// SubscriptionKey authenticates requests (Ocp-Apim-Subscription-Key header).
	SubscriptionKey string `mapstructure:"subscription_key"`

	// APIVersion is the REST api-version query parameter.
	APIVersion string `mapstructure:"api_version"`

	// UserAgent is sent as x-ms-useragent on every request.
	UserAgent string `mapstructure:"user_agent"`

	Poll PollConfig `mapstructure:"poll"`
}

// PollConfig bounds the long-running-operation polling loop.
type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	MaxAttempts     int `mapstructure:"max_attempts"`
}

// Interval returns the polling interval as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		APIVersion: "2025-05-01-preview",
		UserAgent:  "cumigrate",
		Poll: PollConfig{
			IntervalSeconds: 2,
			MaxAttempts:     180,
		},
	}
}

// Load reads configuration from the given file (optional), the environment,
// and defaults. Environment variables use the CUMIGRATE_ prefix; the legacy
// HOST, SUBSCRIPTION_KEY, and API_VERSION names are honored as fallbacks.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("api_version", defaults.APIVersion)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("poll.interval_seconds", defaults.Poll.IntervalSeconds)
	v.SetDefault("poll.max_attempts", defaults.Poll.MaxAttempts)

	v.SetEnvPrefix("CUMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Fallbacks matching the service sample environment files.
	_ = v.BindEnv("endpoint", "CUMIGRATE_ENDPOINT", "HOST")
	_ = v.BindEnv("subscription_key", "CUMIGRATE_SUBSCRIPTION_KEY", "SUBSCRIPTION_KEY")
	_ = v.BindEnv("api_version", "CUMIGRATE_API_VERSION", "API_VERSION")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cumigrate")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Endpoint = strings.TrimRight(ResolveEnvVars(cfg.Endpoint), "/")
	cfg.SubscriptionKey = ResolveEnvVars(cfg.SubscriptionKey)

	return &cfg, nil
}

// Validate checks that the settings required for service calls are present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required (set CUMIGRATE_ENDPOINT or HOST)")
	}
	if c.SubscriptionKey == "" {
		return errors.New("subscription_key is required (set CUMIGRATE_SUBSCRIPTION_KEY or SUBSCRIPTION_KEY)")
	}
	if c.APIVersion == "" {
		return errors.New("api_version is required")
	}
	return nil
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}
