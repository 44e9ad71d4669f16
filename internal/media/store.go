// Package media owns the request-scoped audio artifacts: writing uploads to
// disk, converting them to the canonical waveform, and removing both again.
package media

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultExtension is used when the upload carries no usable filename.
const DefaultExtension = ".wav"

// Store writes uploaded payloads into a temp directory under unique names
// and removes them when the request is done. Paths are never shared between
// requests, so no locking is needed.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string {
	return s.dir
}

// Acquire streams the upload to a fresh uuid-named file, keeping the
// original extension as a hint for the normalization tool.
func (s *Store) Acquire(src io.Reader, origName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(origName))
	if ext == "" {
		ext = DefaultExtension
	}

	path := filepath.Join(s.dir, uuid.New().String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

// Release removes the given paths. It is idempotent: paths that were never
// created, or were already removed, are not an error. Empty strings are
// skipped so callers can pass paths that were never assigned.
func (s *Store) Release(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Failed to remove temp file %s: %v", path, err)
		}
	}
}
