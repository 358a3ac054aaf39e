// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"time"
)

// Classifier providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Default model per provider, used when llm_model is empty. The OpenRouter
// id carries a vendor prefix that the Gemini API rejects.
const (
	DefaultOpenRouterModel = "google/gemini-2.0-flash-001"
	DefaultGeminiModel     = "gemini-2.5-flash"
)

// Version store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	RateLimitMaxRequests int `koanf:"rate_limit_max_requests"`
	RateLimitWindowMS    int `koanf:"rate_limit_window_ms"`

	// LLMProvider selects the classifier transport.
	LLMProvider    string  `koanf:"llm_provider"`
	LLMAPIKey      string  `koanf:"llm_api_key"`
	LLMBaseURL     string  `koanf:"llm_base_url"`
	LLMModel       string  `koanf:"llm_model"`
	LLMTemperature float64 `koanf:"llm_temperature"`
	LLMMaxTokens   int     `koanf:"llm_max_tokens"`
	LLMTimeoutMS   int     `koanf:"llm_timeout_ms"`

	// GCPProjectID and GCPRegion select Vertex AI when no API key is set.
	GCPProjectID string `koanf:"gcp_project_id"`
	GCPRegion    string `koanf:"gcp_region"`

	// StoreBackend selects where saved versions live.
	StoreBackend  string `koanf:"store_backend"`
	StoreDir      string `koanf:"store_dir"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`
	MaxVersions   int    `koanf:"max_versions"`

	// MetricsEnabled turns recording off without removing /healthz.
	MetricsEnabled   bool `koanf:"metrics_enabled"`
	MetricsRefreshMS int  `koanf:"metrics_refresh_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":8080",
		RateLimitMaxRequests: 5,
		RateLimitWindowMS:    60_000,
		LLMProvider:          ProviderOpenRouter,
		LLMTemperature:       0,
		LLMMaxTokens:         1000,
		LLMTimeoutMS:         30_000,
		GCPRegion:            "europe-west1",
		StoreBackend:         BackendMemory,
		StoreDir:             "data",
		RedisPrefix:          "bingo:",
		MaxVersions:          50,
		MetricsEnabled:       true,
		MetricsRefreshMS:     5_000,
	}
}

// RateLimitWindow returns the window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}

// LLMTimeout returns the outbound call timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

// Model returns llm_model, or the default for the selected provider when it
// is empty.
func (c *Config) Model() string {
	if c.LLMModel != "" {
		return c.LLMModel
	}
	if c.LLMProvider == ProviderGemini {
		return DefaultGeminiModel
	}
	return DefaultOpenRouterModel
}

// MetricsRefresh returns how often background gauges are refreshed.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// ClassifierConfigured reports whether credentials for the chosen provider
// are present.
func (c *Config) ClassifierConfigured() bool {
	switch c.LLMProvider {
	case ProviderOpenRouter:
		return c.LLMAPIKey != ""
	case ProviderGemini:
		return c.LLMAPIKey != "" || c.GCPProjectID != ""
	default:
		return false
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RateLimitMaxRequests <= 0:
		return fmt.Errorf("%w: rate_limit_max_requests must be positive", ErrInvalidConfig)
	case c.RateLimitWindowMS <= 0:
		return fmt.Errorf("%w: rate_limit_window_ms must be positive", ErrInvalidConfig)
	case c.LLMTimeoutMS < 0:
		return fmt.Errorf("%w: llm_timeout_ms must not be negative", ErrInvalidConfig)
	case c.LLMTemperature < 0 || c.LLMTemperature > 2:
		return fmt.Errorf("%w: llm_temperature must be within [0, 2]", ErrInvalidConfig)
	case c.MaxVersions <= 0:
		return fmt.Errorf("%w: max_versions must be positive", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.LLMProvider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown llm_provider %q", ErrInvalidConfig, c.LLMProvider)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendFile:
		if c.StoreDir == "" {
			return fmt.Errorf("%w: store_dir is required for the file backend", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	return nil
}
