// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Resolve <KEY>_FILE references for the secret fields through the
//     SecretProvider, injecting the values back into the environment.
//  4. Use envconfig to process struct tags and populate the Config struct.
//  5. Populate BuildInfo from linker-injected variables.
//  6. Validate the struct using go-playground/validator.
package config

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// secretFileSuffix marks a reference to a secret file.
// ALERT_WEBHOOK_TOKEN_FILE=/run/secrets/token populates ALERT_WEBHOOK_TOKEN.
const secretFileSuffix = "_FILE"

// secretResolveTimeout bounds the whole secret resolution step.
const secretResolveTimeout = 10 * time.Second

type envLookup func(key string) (string, bool)

type envSet func(key, value string) error

// loaderDeps holds the injectable dependencies for the loader, enabling
// testing without mutating global state.
type loaderDeps struct {
	lookupEnv envLookup
	setEnv    envSet
	dotenv    func() error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		dotenv:    func() error { return godotenv.Load() },
	}
}

// LoadConfig loads and validates the configuration. The provider resolves
// secret file references; it may be nil when none are set.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// godotenv does NOT override variables already present in the process
	// environment, and a missing .env file is not an error here.
	if deps.dotenv != nil {
		_ = deps.dotenv()
	}

	if err := resolveSecretRefs(provider, deps); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs struct validation over an already-populated Config. It is
// exported so commands that build a Config from flags can reuse the rules.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	return nil
}

// secretEnvVars lists the envconfig keys of every SecretString field in
// Config. Only these variables may be given as <KEY>_FILE.
func secretEnvVars() []string {
	secretType := reflect.TypeFor[SecretString]()
	var keys []string
	var walk func(t reflect.Type)
	walk = func(t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			switch {
			case f.Type == secretType:
				if key := f.Tag.Get("envconfig"); key != "" {
					keys = append(keys, key)
				}
			case f.Type.Kind() == reflect.Struct:
				walk(f.Type)
			}
		}
	}
	walk(reflect.TypeFor[Config]())
	return keys
}

// resolveSecretRefs resolves <KEY>_FILE references for the secret fields
// via the provider and sets KEY. A KEY that is already set wins over its
// reference. Other *_FILE variables in the environment are ignored.
func resolveSecretRefs(provider SecretProvider, deps loaderDeps) error {
	type binding struct {
		targetEnvVar string
		ref          string
	}

	var bindings []binding
	refToTargets := make(map[string][]string)

	for _, target := range secretEnvVars() {
		ref, ok := deps.lookupEnv(target + secretFileSuffix)
		if !ok || ref == "" {
			continue
		}
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		bindings = append(bindings, binding{targetEnvVar: target, ref: ref})
		refToTargets[ref] = append(refToTargets[ref], target)
	}

	if len(bindings) == 0 {
		return nil
	}

	if provider == nil {
		targets := make([]string, 0, len(bindings))
		for _, b := range bindings {
			targets = append(targets, b.targetEnvVar)
		}
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("SecretProvider is required to resolve: %s", strings.Join(targets, ", ")),
		}
	}

	refs := make([]string, 0, len(refToTargets))
	for ref := range refToTargets {
		refs = append(refs, ref)
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretResolveTimeout)
	defer cancel()

	resolved, err := provider.ResolveBatch(ctx, refs)
	if err != nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("failed to resolve %d secret references", len(refs)),
			Err:     err,
		}
	}

	var missing []string
	for _, b := range bindings {
		value, ok := resolved[b.ref]
		if !ok {
			missing = append(missing, b.targetEnvVar)
			continue
		}
		if err := deps.setEnv(b.targetEnvVar, value); err != nil {
			return &ConfigError{
				Type:    ErrSecretResolution,
				Message: fmt.Sprintf("failed to set resolved value for %s", b.targetEnvVar),
				Err:     err,
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("secret references not found for: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}
