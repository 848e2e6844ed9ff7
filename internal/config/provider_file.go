package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileSecretProvider implements SecretProvider by reading each reference as a
// file path, the convention used by container secret mounts. Surrounding
// whitespace is trimmed from the file contents.
type FileSecretProvider struct {
	readFile func(name string) ([]byte, error)
}

// NewFileSecretProvider creates a FileSecretProvider backed by os.ReadFile.
func NewFileSecretProvider() *FileSecretProvider {
	return &FileSecretProvider{readFile: os.ReadFile}
}

// ResolveBatch reads every referenced file. Files that do not exist are
// omitted from the result; any other read error aborts the batch.
func (p *FileSecretProvider) ResolveBatch(ctx context.Context, refs []string) (map[string]string, error) {
	result := make(map[string]string, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := p.readFile(ref)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading secret file %s: %w", ref, err)
		}
		result[ref] = strings.TrimSpace(string(b))
	}
	return result, nil
}
