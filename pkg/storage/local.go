package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects under a root directory. Used in development and by
// the CLI.
type Local struct {
	root     string
	maxBytes int64
}

func NewLocal(root string, maxBytes int64) *Local {
	return &Local{root: root, maxBytes: maxBytes}
}

func (l *Local) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(path))
	if clean == "/" {
		return "", fmt.Errorf("storage: empty path")
	}
	return filepath.Join(l.root, clean), nil
}

func (l *Local) Download(ctx context.Context, path string) ([]byte, error) {
	full, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && l.maxBytes > 0 && info.Size() > l.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}
	return readLimited(f, l.maxBytes)
}

func (l *Local) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	full, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}
