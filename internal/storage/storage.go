package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNotFound indicates that no stored object exists at the requested key.
	ErrNotFound = errors.New("storage: object not found")
	// ErrInvalidKey indicates that a key is empty or escapes the storage root.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Storage keeps uploaded documents addressed by a relative key.
type Storage interface {
	Save(ctx context.Context, key string, reader io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// LocalStorage stores documents under a directory on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates basePath when missing and returns a LocalStorage rooted there.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	trimmed := strings.TrimSpace(basePath)
	if trimmed == "" {
		return nil, fmt.Errorf("storage: base path is required")
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	absolute, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: absolute}, nil
}

// Save writes reader to key, replacing any previous object, and returns the byte count.
func (s *LocalStorage) Save(ctx context.Context, key string, reader io.Reader) (int64, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	temporary, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	written, copyErr := io.Copy(temporary, reader)
	closeErr := temporary.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(temporary.Name())
		return 0, fmt.Errorf("failed to write file: %w", errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(temporary.Name(), fullPath); err != nil {
		_ = os.Remove(temporary.Name())
		return 0, fmt.Errorf("failed to store file: %w", err)
	}
	return written, nil
}

// Open returns a reader for key or ErrNotFound.
func (s *LocalStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes key; a missing object is not an error.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists reports whether key is stored.
func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.TrimSpace(key)))
	if cleaned == "." || cleaned == "" || filepath.IsAbs(cleaned) || cleaned == ".." ||
		strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}
