// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (VIBECHECK_*)
//  2. Config file (~/.vibecheck/config.yaml, or ./config.yaml)
//  3. Default values
//
// Sensitive values (the API token) are masked in MarshalJSON and never
// logged.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidBaseURL indicates the API base URL is missing or unparsable.
	ErrInvalidBaseURL = errors.New("invalid API base URL")

	// ErrInvalidPageSize indicates the history page size is out of range.
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrInvalidTimeout indicates a timeout value is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidMaxRetries indicates the retry count is out of range.
	ErrInvalidMaxRetries = errors.New("invalid max retries")
)

// Bounds for validated settings.
const (
	// MinPageSize and MaxPageSize bound the history listing page size.
	MinPageSize = 1
	MaxPageSize = 100

	// MaxRetriesCeiling caps the bounded retry count for non-streaming
	// calls. The stream itself never retries.
	MaxRetriesCeiling = 5
)

// Telemetry configures the optional OTLP trace exporter.
type Telemetry struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	Environment string `mapstructure:"environment" json:"environment"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
}

// Config stores application configuration.
type Config struct {
	// APIBaseURL is the roof of the persona API, e.g. https://api.vibecheck.ai
	APIBaseURL string `mapstructure:"api_base_url" json:"api_base_url"`

	// APIToken is the bearer token sent with every request. Masked in JSON.
	APIToken string `mapstructure:"api_token" json:"api_token"`

	// PageSize is the history listing page size.
	PageSize int `mapstructure:"page_size" json:"page_size"`

	// RequestTimeout bounds each non-streaming HTTP call.
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// StreamTimeout bounds one whole streaming turn. A stalled stream
	// surfaces as a timeout instead of hanging the UI forever.
	StreamTimeout time.Duration `mapstructure:"stream_timeout" json:"stream_timeout"`

	// MaxRetries is the bounded retry count for non-streaming calls.
	MaxRetries int `mapstructure:"max_retries" json:"max_retries"`

	// Telemetry configures optional tracing.
	Telemetry Telemetry `mapstructure:"telemetry" json:"telemetry"`
}

// Load reads configuration from file, environment, and defaults.
func Load() (*Config, error) {
	setDefaults()
	bindEnvVariables()

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".vibecheck"))
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine; env and defaults carry the day.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("api_base_url", "http://localhost:8080")
	viper.SetDefault("page_size", 20)
	viper.SetDefault("request_timeout", "15s")
	viper.SetDefault("stream_timeout", "5m")
	viper.SetDefault("max_retries", 2)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.environment", "dev")
	viper.SetDefault("telemetry.service_name", "vibecheck")
}

func bindEnvVariables() {
	// Explicit binding keeps the env surface documented in one place.
	bindings := map[string]string{
		"api_base_url":           "VIBECHECK_API_BASE_URL",
		"api_token":              "VIBECHECK_API_TOKEN",
		"page_size":              "VIBECHECK_PAGE_SIZE",
		"request_timeout":        "VIBECHECK_REQUEST_TIMEOUT",
		"stream_timeout":         "VIBECHECK_STREAM_TIMEOUT",
		"max_retries":            "VIBECHECK_MAX_RETRIES",
		"telemetry.enabled":      "VIBECHECK_TELEMETRY_ENABLED",
		"telemetry.endpoint":     "VIBECHECK_TELEMETRY_ENDPOINT",
		"telemetry.environment":  "VIBECHECK_TELEMETRY_ENVIRONMENT",
		"telemetry.service_name": "VIBECHECK_TELEMETRY_SERVICE_NAME",
	}
	for key, envVar := range bindings {
		// BindEnv only errors on empty input, which cannot happen here.
		_ = viper.BindEnv(key, envVar)
	}
}

// Validate checks all settings against their allowed ranges.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q (want scheme://host)", ErrInvalidBaseURL, c.APIBaseURL)
	}

	if c.PageSize < MinPageSize || c.PageSize > MaxPageSize {
		return fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidPageSize, c.PageSize, MinPageSize, MaxPageSize)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout %s must be positive", ErrInvalidTimeout, c.RequestTimeout)
	}
	if c.StreamTimeout <= 0 {
		return fmt.Errorf("%w: stream_timeout %s must be positive", ErrInvalidTimeout, c.StreamTimeout)
	}

	if c.MaxRetries < 0 || c.MaxRetries > MaxRetriesCeiling {
		return fmt.Errorf("%w: %d (allowed 0-%d)", ErrInvalidMaxRetries, c.MaxRetries, MaxRetriesCeiling)
	}

	return nil
}

// maskSecret hides all but a short prefix of a sensitive value.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// MarshalJSON masks the API token so configs can be logged or dumped safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	masked.APIToken = maskSecret(c.APIToken)
	return json.Marshal(masked)
}
