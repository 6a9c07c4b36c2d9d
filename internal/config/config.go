// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.nexus/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Gateway: bind address, CORS origins, upstream rate limit
//   - Providers: OpenRouter and Mistral credentials and models
//   - Client: gateway URL, exchange timeout, history database path
//   - Logging: level and format
//
// Provider API keys are optional: with no key configured the gateway
// still answers every request from its built-in responder.
//
// Security: sensitive values (API keys) are masked in MarshalJSON and
// String; the config directory uses 0750 permissions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidAddr indicates the gateway bind address is empty.
	ErrInvalidAddr = errors.New("invalid bind address")

	// ErrInvalidGatewayURL indicates the client gateway URL is empty.
	ErrInvalidGatewayURL = errors.New("invalid gateway URL")

	// ErrInvalidTimeout indicates the exchange timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidRateLimit indicates the upstream rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Timeout bounds for one client exchange.
const (
	MinTimeout = 1 * time.Second
	MaxTimeout = 5 * time.Minute
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (API keys, tokens), update MarshalJSON.
type Config struct {
	// Gateway configuration (serve mode)
	Addr           string   `mapstructure:"addr" json:"addr"`
	CORSOrigins    []string `mapstructure:"cors_origins" json:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// OpenRouter provider (first in the fallback chain)
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key" json:"openrouter_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenRouterModel  string `mapstructure:"openrouter_model" json:"openrouter_model"`
	SiteURL          string `mapstructure:"site_url" json:"site_url"`
	SiteTitle        string `mapstructure:"site_title" json:"site_title"`

	// Mistral provider (second in the fallback chain)
	MistralAPIKey string `mapstructure:"mistral_api_key" json:"mistral_api_key"` // SENSITIVE: masked in MarshalJSON
	MistralModel  string `mapstructure:"mistral_model" json:"mistral_model"`

	// Client configuration (chat mode)
	GatewayURL     string        `mapstructure:"gateway_url" json:"gateway_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	HistoryPath    string        `mapstructure:"history_path" json:"history_path"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".nexus")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults and env cover it.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
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

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper, configDir string) {
	// Gateway defaults
	v.SetDefault("addr", "127.0.0.1:8080")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("rate_limit_rps", 2.0)
	v.SetDefault("rate_limit_burst", 5)

	// Provider defaults (keys default to empty: fallback-only mode)
	v.SetDefault("openrouter_model", "mistralai/mistral-7b-instruct:free")
	v.SetDefault("mistral_model", "mistral-large-latest")
	v.SetDefault("site_url", "")
	v.SetDefault("site_title", "Nexus")

	// Client defaults
	v.SetDefault("gateway_url", "http://127.0.0.1:8080")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("history_path", filepath.Join(configDir, "history.db"))

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly. Provider
// variables keep their upstream-conventional names; everything else is
// namespaced under NEXUS_.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded strings cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("openrouter_api_key", "OPENROUTER_API_KEY")
	mustBind("openrouter_model", "OPENROUTER_MODEL")
	mustBind("mistral_api_key", "MISTRAL_API_KEY")
	mustBind("mistral_model", "MISTRAL_MODEL")
	mustBind("site_url", "SITE_URL")
	mustBind("site_title", "SITE_TITLE")

	mustBind("addr", "NEXUS_ADDR")
	mustBind("cors_origins", "NEXUS_CORS_ORIGINS")
	mustBind("gateway_url", "NEXUS_GATEWAY_URL")
	mustBind("log_level", "NEXUS_LOG_LEVEL")
}

// Validate checks configuration invariants. Missing provider API keys
// are deliberately not an error.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidAddr
	}
	if c.GatewayURL == "" {
		return ErrInvalidGatewayURL
	}
	if c.RequestTimeout < MinTimeout || c.RequestTimeout > MaxTimeout {
		return fmt.Errorf("%w: %s (must be between %s and %s)",
			ErrInvalidTimeout, c.RequestTimeout, MinTimeout, MaxTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("%w: rps %v must not be negative", ErrInvalidRateLimit, c.RateLimitRPS)
	}
	if c.RateLimitBurst < 0 {
		return fmt.Errorf("%w: burst %d must not be negative", ErrInvalidRateLimit, c.RateLimitBurst)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8
// characters or fewer are fully masked; longer ones keep the first and
// last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - OpenRouterAPIKey
//   - MistralAPIKey
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenRouterAPIKey = maskSecret(a.OpenRouterAPIKey)
	a.MistralAPIKey = maskSecret(a.MistralAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
