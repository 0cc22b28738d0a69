// Package storage provides the export sink adapters.
package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jobrunner/geofacet/internal/domain"
)

// CleanKey normalizes an object key and rejects keys that are empty,
// absolute, or escape the sink root.
func CleanKey(key string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || cleaned == "." || strings.HasPrefix(cleaned, "/") ||
		cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &domain.ValidationError{Field: "key", Value: key, Constraint: "relative path", Message: "invalid object key"}
	}
	return cleaned, nil
}

// joinKey prefixes key with prefix using "/" separators.
func joinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// LocalStorage implements output.ExportSink on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local sink rooted at basePath.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// FullPath returns the filesystem path for a key.
func (s *LocalStorage) FullPath(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleaned)), nil
}

// Write stores content atomically: it is written to a temporary file in the
// target directory, then renamed.
func (s *LocalStorage) Write(_ context.Context, key string, content []byte) error {
	dest, err := s.FullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".export-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //#nosec G302 -- exports are published files
		return err
	}
	return os.Rename(tmpName, dest)
}

// Open returns a reader for the given object.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.FullPath(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p) //#nosec G304 -- key is cleaned and confined to basePath
}

// Exists checks if a file exists.
func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.FullPath(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
