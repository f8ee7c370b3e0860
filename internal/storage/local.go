package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid object path")

// ObjectStorage stores public objects such as course covers
type ObjectStorage interface {
	// Upload writes data at objectPath and returns its public URL
	Upload(ctx context.Context, objectPath string, data []byte) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// LocalStorage keeps objects on disk under a base directory, served from publicURL
type LocalStorage struct {
	baseDir   string
	publicURL string
}

func NewLocalStorage(baseDir, publicURL string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// Upload overwrites any object already stored at objectPath
func (s *LocalStorage) Upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare object directory: %w", err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("commit object: %w", err)
	}

	return s.publicURL + "/" + clean, nil
}

// Delete removes an object if present
func (s *LocalStorage) Delete(ctx context.Context, objectPath string) error {
	clean, err := cleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	target := filepath.Join(s.baseDir, filepath.FromSlash(clean))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// cleanObjectPath rejects paths that would escape the base directory
func cleanObjectPath(objectPath string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(objectPath, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || strings.Contains(objectPath, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return clean, nil
}
