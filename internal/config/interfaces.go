package config

import "context"

// SecretProvider resolves secret references (for example file paths named by
// ALERT_WEBHOOK_TOKEN_FILE) to plaintext values.
type SecretProvider interface {
	// ResolveBatch returns a map of reference -> value for every reference it
	// could resolve. Missing references are omitted, not errors.
	ResolveBatch(ctx context.Context, refs []string) (map[string]string, error)
}
