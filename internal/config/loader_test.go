package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

// testSecretProvider is a configurable fake for secret reference resolution.
type testSecretProvider struct {
	values     map[string]string
	err        error
	calledWith []string
	callCount  int
}

func (p *testSecretProvider) ResolveBatch(_ context.Context, refs []string) (map[string]string, error) {
	p.callCount++
	p.calledWith = append(p.calledWith, refs...)
	if p.err != nil {
		return nil, p.err
	}
	result := make(map[string]string)
	for _, k := range refs {
		if v, ok := p.values[k]; ok {
			result[k] = v
		}
	}
	return result, nil
}

// isolatedDeps sets env for the test and returns loader deps that never read
// a .env file.
func isolatedDeps(t *testing.T, env map[string]string) loaderDeps {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv: func(key, value string) error {
			t.Setenv(key, value)
			return nil
		},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfigWithDeps(nil, isolatedDeps(t, nil))
	if err != nil {
		t.Fatalf("loadConfigWithDeps returned error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want local", cfg.Environment)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("Server.ListenAddr = %q, want 127.0.0.1:8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.RequestTimeout != 10*time.Second {
		t.Errorf("Server.RequestTimeout = %v, want 10s", cfg.Server.RequestTimeout)
	}
	if cfg.Forecast.Backend != "scalar" {
		t.Errorf("Forecast.Backend = %q, want scalar", cfg.Forecast.Backend)
	}
	if cfg.Alert.WebhookEnabled() {
		t.Error("webhook should be disabled without ALERT_WEBHOOK_URL")
	}
	if len(cfg.Security.CorsAllowedOrigins) != 1 || cfg.Security.CorsAllowedOrigins[0] != "*" {
		t.Errorf("CorsAllowedOrigins = %v, want [*]", cfg.Security.CorsAllowedOrigins)
	}
	if cfg.Security.RateLimitRPS != 10 || cfg.Security.RateLimitBurst != 20 {
		t.Errorf("rate limit = %v/%d, want 10/20", cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q, want dev", cfg.Build.Version)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	deps := isolatedDeps(t, nil)
	t.Setenv("LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("FORECAST_BACKEND", "accelerated")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("ALERT_WEBHOOK_TOKEN", "tok-123")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := loadConfigWithDeps(nil, deps)
	if err != nil {
		t.Fatalf("loadConfigWithDeps returned error: %v", err)
	}
	if cfg.Server.ListenAddr != "0.0.0.0:9090" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Forecast.Backend != "accelerated" {
		t.Errorf("Backend = %q", cfg.Forecast.Backend)
	}
	if !cfg.Alert.WebhookEnabled() {
		t.Error("webhook should be enabled")
	}
	if cfg.Alert.WebhookToken.Unmask() != "tok-123" {
		t.Errorf("WebhookToken.Unmask() = %q", cfg.Alert.WebhookToken.Unmask())
	}
	if cfg.Alert.WebhookToken.String() != "***REDACTED***" {
		t.Errorf("WebhookToken.String() should be redacted, got %q", cfg.Alert.WebhookToken.String())
	}
	if len(cfg.Security.CorsAllowedOrigins) != 2 {
		t.Errorf("CorsAllowedOrigins = %v", cfg.Security.CorsAllowedOrigins)
	}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestLoadConfigSetsUTC(t *testing.T) {
	if _, err := loadConfigWithDeps(nil, isolatedDeps(t, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Local != time.UTC {
		t.Errorf("time.Local = %v, want UTC", time.Local)
	}
}

func TestLoadConfigValidationFailure(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown environment", "APP_ENV", "staging"},
		{"unknown backend", "FORECAST_BACKEND", "gpu"},
		{"bad webhook url", "ALERT_WEBHOOK_URL", "not a url"},
		{"unknown platform", "ALERT_WEBHOOK_PLATFORM", "teams"},
		{"bad listen addr", "LISTEN_ADDR", "localhost"},
		{"negative rate", "RATE_LIMIT_RPS", "-1"},
		{"bad log level", "LOG_LEVEL", "trace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := isolatedDeps(t, nil)
			t.Setenv(tt.key, tt.value)

			_, err := loadConfigWithDeps(nil, deps)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Type != ErrValidation {
				t.Errorf("Type = %s, want %s", cfgErr.Type, ErrValidation)
			}
		})
	}
}

func TestLoadConfigParsingFailure(t *testing.T) {
	deps := isolatedDeps(t, nil)
	t.Setenv("REQUEST_TIMEOUT", "soon")

	_, err := loadConfigWithDeps(nil, deps)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Type != ErrParsing {
		t.Fatalf("expected parsing ConfigError, got %v", err)
	}
}

func TestLoadConfigSecretFileResolution(t *testing.T) {
	provider := &testSecretProvider{values: map[string]string{
		"/run/secrets/token": "resolved-token",
	}}
	deps := isolatedDeps(t, map[string]string{
		"ALERT_WEBHOOK_TOKEN_FILE": "/run/secrets/token",
	})
	// Start from an unset target so the reference is honoured.
	t.Setenv("ALERT_WEBHOOK_TOKEN", "")
	os.Unsetenv("ALERT_WEBHOOK_TOKEN")

	cfg, err := loadConfigWithDeps(provider, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Alert.WebhookToken.Unmask() != "resolved-token" {
		t.Errorf("WebhookToken = %q, want resolved-token", cfg.Alert.WebhookToken.Unmask())
	}
	if provider.callCount != 1 {
		t.Errorf("callCount = %d, want 1", provider.callCount)
	}
}

func TestLoadConfigSecretFileDirectEnvWins(t *testing.T) {
	provider := &testSecretProvider{values: map[string]string{"/run/secrets/token": "from-file"}}
	deps := isolatedDeps(t, map[string]string{
		"ALERT_WEBHOOK_TOKEN_FILE": "/run/secrets/token",
	})
	t.Setenv("ALERT_WEBHOOK_TOKEN", "from-env")

	cfg, err := loadConfigWithDeps(provider, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Alert.WebhookToken.Unmask() != "from-env" {
		t.Errorf("WebhookToken = %q, want from-env", cfg.Alert.WebhookToken.Unmask())
	}
	if provider.callCount != 0 {
		t.Errorf("provider should not be called, callCount = %d", provider.callCount)
	}
}

func TestLoadConfigSecretFileErrors(t *testing.T) {
	t.Run("nil provider", func(t *testing.T) {
		deps := isolatedDeps(t, map[string]string{"ALERT_WEBHOOK_SECRET_FILE": "/x"})
		os.Unsetenv("ALERT_WEBHOOK_SECRET")
		_, err := loadConfigWithDeps(nil, deps)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Type != ErrSecretResolution {
			t.Fatalf("expected secret resolution error, got %v", err)
		}
	})

	t.Run("provider error", func(t *testing.T) {
		boom := errors.New("boom")
		deps := isolatedDeps(t, map[string]string{"ALERT_WEBHOOK_SECRET_FILE": "/x"})
		os.Unsetenv("ALERT_WEBHOOK_SECRET")
		_, err := loadConfigWithDeps(&testSecretProvider{err: boom}, deps)
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped boom, got %v", err)
		}
	})

	t.Run("missing reference", func(t *testing.T) {
		deps := isolatedDeps(t, map[string]string{"ALERT_WEBHOOK_SECRET_FILE": "/missing"})
		os.Unsetenv("ALERT_WEBHOOK_SECRET")
		_, err := loadConfigWithDeps(&testSecretProvider{}, deps)
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Type != ErrSecretResolution {
			t.Fatalf("expected secret resolution error, got %v", err)
		}
	})
}

func TestLoadConfigDotenvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("STORE_PATH=/tmp/from-dotenv.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	deps := isolatedDeps(t, nil)
	// Register cleanup for the variable godotenv will set.
	t.Setenv("STORE_PATH", "")
	os.Unsetenv("STORE_PATH")
	deps.dotenv = func() error { return godotenv.Load(envPath) }

	cfg, err := loadConfigWithDeps(nil, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Data.StorePath != "/tmp/from-dotenv.db" {
		t.Errorf("StorePath = %q, want value from .env", cfg.Data.StorePath)
	}
}

func TestLoadConfigEnvOverridesDotenv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("STORE_PATH=/tmp/from-dotenv.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	deps := isolatedDeps(t, nil)
	t.Setenv("STORE_PATH", "/tmp/from-env.db")
	deps.dotenv = func() error { return godotenv.Load(envPath) }

	cfg, err := loadConfigWithDeps(nil, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Data.StorePath != "/tmp/from-env.db" {
		t.Errorf("StorePath = %q, want /tmp/from-env.db", cfg.Data.StorePath)
	}
}

func TestConfigErrorFormatting(t *testing.T) {
	inner := errors.New("inner")
	withErr := &ConfigError{Type: ErrParsing, Message: "msg", Err: inner}
	if withErr.Error() != "[PARSING_FAILED] msg: inner" {
		t.Errorf("Error() = %q", withErr.Error())
	}
	if !errors.Is(withErr, inner) {
		t.Error("Unwrap should expose inner error")
	}
	bare := &ConfigError{Type: ErrValidation, Message: "msg"}
	if bare.Error() != "[VALIDATION_FAILED] msg" {
		t.Errorf("Error() = %q", bare.Error())
	}
}

func TestFileSecretProvider(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "token")
	if err := os.WriteFile(present, []byte("  s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileSecretProvider().ResolveBatch(context.Background(), []string{present, filepath.Join(dir, "absent")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[present] != "s3cret" {
		t.Errorf("ResolveBatch = %v, want only trimmed token", got)
	}
}

func TestSecretEnvVars(t *testing.T) {
	got := secretEnvVars()
	want := []string{"ALERT_WEBHOOK_TOKEN", "ALERT_WEBHOOK_SECRET"}
	if len(got) != len(want) {
		t.Fatalf("secretEnvVars() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("secretEnvVars()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadConfigIgnoresUnrelatedFileVariables(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca.crt")
	if err := os.WriteFile(certPath, []byte("-----BEGIN CERTIFICATE-----\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	deps := isolatedDeps(t, map[string]string{
		"SSL_CERT_FILE":               certPath,
		"AWS_SHARED_CREDENTIALS_FILE": filepath.Join(dir, "missing", "credentials"),
	})
	t.Setenv("SSL_CERT", "")
	os.Unsetenv("SSL_CERT")
	t.Setenv("ALERT_WEBHOOK_TOKEN_FILE", "")
	t.Setenv("ALERT_WEBHOOK_SECRET_FILE", "")

	if _, err := loadConfigWithDeps(NewFileSecretProvider(), deps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := os.LookupEnv("SSL_CERT"); ok {
		t.Error("SSL_CERT must not be populated from SSL_CERT_FILE")
	}
	if _, err := loadConfigWithDeps(nil, deps); err != nil {
		t.Fatalf("nil provider: unexpected error: %v", err)
	}
}
