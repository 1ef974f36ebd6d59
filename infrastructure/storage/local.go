package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalStorage implements ports.StorageProvider for the local filesystem
type LocalStorage struct{}

// NewLocalStorage creates a new local storage provider
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Exists checks if a file exists
func (s *LocalStorage) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Size returns file size in bytes
func (s *LocalStorage) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes a file
func (s *LocalStorage) Remove(_ context.Context, path string) error {
	return os.Remove(path)
}

// MkdirAll creates a directory and any missing parents. No error when the
// directory already exists.
func (s *LocalStorage) MkdirAll(_ context.Context, path string) error {
	return os.MkdirAll(path, 0o755)
}

// Copy duplicates src to dst, creating dst's directory when needed
func (s *LocalStorage) Copy(_ context.Context, src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// TempFile creates a temporary file and returns its path
func (s *LocalStorage) TempFile(_ context.Context, dir, pattern string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return filepath.Abs(f.Name())
}

// Rename moves a file to a new path
func (s *LocalStorage) Rename(_ context.Context, oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// CreationTime returns the file creation time. Platforms without a recorded
// birth time fall back to the modification time.
func (s *LocalStorage) CreationTime(_ context.Context, path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	if bt, ok := birthTime(path, info); ok {
		return bt, nil
	}
	return info.ModTime(), nil
}
