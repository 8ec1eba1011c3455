package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// cursorRecord is the on-disk form of a saved cursor
type cursorRecord struct {
	NextURL   string    `json:"next_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileSystemCursorStore keeps one JSON file per consumer key under a root directory
type FileSystemCursorStore struct {
	rootDir string
}

// NewFileSystemCursorStore creates a new filesystem-based store
func NewFileSystemCursorStore(rootDir string) (*FileSystemCursorStore, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("no root directory provided for cursor store")
	}
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FileSystemCursorStore{rootDir: rootDir}, nil
}

func (s *FileSystemCursorStore) path(key string) string {
	return filepath.Join(s.rootDir, url.PathEscape(key)+".json")
}

// Load implements journal.CursorStore
func (s *FileSystemCursorStore) Load(_ context.Context, key string) (string, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrCursorNotFound
	} else if err != nil {
		return "", fmt.Errorf("failed to read cursor file: %w", err)
	}

	var record cursorRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("failed to unmarshal cursor: %w", err)
	}
	return record.NextURL, nil
}

// Save writes the cursor through a temp file so a crash never leaves a partial record
func (s *FileSystemCursorStore) Save(_ context.Context, key, nextURL string) error {
	data, err := json.Marshal(cursorRecord{NextURL: nextURL, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}

	tmp, err := os.CreateTemp(s.rootDir, ".cursor-*")
	if err != nil {
		return fmt.Errorf("failed to create cursor file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cursor file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("failed to replace cursor file: %w", err)
	}
	return nil
}

// Delete removes the cursor file
func (s *FileSystemCursorStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cursor file: %w", err)
	}
	return nil
}

func (s *FileSystemCursorStore) Close() error { return nil }
