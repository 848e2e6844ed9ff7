// Package config defines the process configuration for AirWatch.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> *_FILE secret references (Lowest)
//
// Any invalid value causes startup to fail immediately.
package config

import (
	"log/slog"
	"strings"
	"time"

	"airwatch/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for secret fields.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"airwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Data     DataConfig
	Forecast ForecastConfig
	Alert    AlertConfig
	Security SecurityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	ListenAddr      string        `envconfig:"LISTEN_ADDR" default:"127.0.0.1:8080" validate:"required,hostname_port"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// DataConfig locates the pollution dataset and the on-device store.
type DataConfig struct {
	DatasetPath string `envconfig:"DATASET_PATH" default:"data/pollution-data.json" validate:"required"`
	StorePath   string `envconfig:"STORE_PATH" default:"airwatch.db" validate:"required"`
}

// ForecastConfig selects the forecasting backend.
type ForecastConfig struct {
	// Backend is one of scalar, accelerated, none. "none" forces the
	// fallback path for every forecast.
	Backend  string `envconfig:"FORECAST_BACKEND" default:"scalar" validate:"oneof=scalar accelerated none"`
	Headless bool   `envconfig:"FORECAST_HEADLESS" default:"false"`
}

// AlertConfig configures the outbound alert channels. The webhook channel is
// enabled only when WebhookURL is set.
type AlertConfig struct {
	WebhookURL      string        `envconfig:"ALERT_WEBHOOK_URL" validate:"omitempty,url"`
	WebhookToken    SecretString  `envconfig:"ALERT_WEBHOOK_TOKEN"`
	WebhookSecret   SecretString  `envconfig:"ALERT_WEBHOOK_SECRET"`
	WebhookPlatform string        `envconfig:"ALERT_WEBHOOK_PLATFORM" validate:"omitempty,oneof=generic slack discord"`
	WebhookTimeout  time.Duration `envconfig:"ALERT_WEBHOOK_TIMEOUT" default:"10s" validate:"gt=0"`
	UserAgent       string        `envconfig:"ALERT_USER_AGENT" default:"AirWatch-Webhook/1.0"`
}

// WebhookEnabled reports whether an alert webhook is configured.
func (a AlertConfig) WebhookEnabled() bool { return strings.TrimSpace(a.WebhookURL) != "" }

// SecurityConfig holds CORS and request rate limiting settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	// RateLimitRPS of 0 disables rate limiting.
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"10" validate:"gte=0"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20" validate:"gte=1"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to Info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrSecretResolution indicates a *_FILE reference could not be read.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
