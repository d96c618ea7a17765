// Package config loads client configuration from defaults, an optional
// YAML file, and environment variables, in increasing priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/reqwire/reqwire/client"
)

// envPrefix namespaces the environment variables read by Load, e.g.
// REQWIRE_RETRY_MAX_RETRIES=5.
const envPrefix = "REQWIRE_"

// Config is the loadable client configuration.
type Config struct {
	Timeout       time.Duration `koanf:"timeout" validate:"gte=0"`
	LogLevel      string        `koanf:"log_level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogPretty     bool          `koanf:"log_pretty"`
	RetryAfterCap time.Duration `koanf:"retry_after_cap" validate:"gte=0"`
	Retry         RetryConfig   `koanf:"retry"`
}

// RetryConfig mirrors client.RetryPolicy in loadable form.
type RetryConfig struct {
	MaxRetries         int           `koanf:"max_retries" validate:"gte=0"`
	BaseDelay          time.Duration `koanf:"base_delay" validate:"gt=0"`
	MaxDelay           time.Duration `koanf:"max_delay" validate:"gtecsfield=BaseDelay"`
	ExponentialBackoff bool          `koanf:"exponential_backoff"`
}

// Policy converts the loaded retry configuration into a retry policy.
func (r RetryConfig) Policy() client.RetryPolicy {
	return client.RetryPolicy{
		MaxRetries:         r.MaxRetries,
		BaseDelay:          r.BaseDelay,
		MaxDelay:           r.MaxDelay,
		ExponentialBackoff: r.ExponentialBackoff,
	}
}

func defaults() map[string]any {
	return map[string]any{
		"timeout":                   "30s",
		"log_level":                 "info",
		"log_pretty":                false,
		"retry_after_cap":           "30s",
		"retry.max_retries":         0,
		"retry.base_delay":          "1s",
		"retry.max_delay":           "30s",
		"retry.exponential_backoff": true,
	}
}

// Load builds the configuration. Priority, lowest to highest: built-in
// defaults, the YAML file at path (skipped when path is empty; a missing
// file is an error), then REQWIRE_-prefixed environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// REQWIRE_RETRY_MAX_RETRIES -> retry.max_retries, with the
			// underscore inside leaf keys preserved via known prefixes
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			if rest, ok := strings.CutPrefix(key, "retry_"); ok && rest != "after_cap" {
				return "retry." + rest, value
			}
			return key, value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
