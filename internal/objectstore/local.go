package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps images on the local filesystem under a root directory.
// Keys use forward slashes as path separators on all platforms.
type LocalStore struct {
	root string
}

// NewLocalStore creates a local store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Put writes the bytes under the key, creating parent directories.
func (s *LocalStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	cleaned, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(cleaned), 0o755); err != nil {
		return "", fmt.Errorf("create image directory: %w", err)
	}
	if err := os.WriteFile(cleaned, body, 0o644); err != nil {
		return "", fmt.Errorf("write image %s: %w", key, err)
	}
	return key, nil
}

// Get opens a stored image by key.
func (s *LocalStore) Get(_ context.Context, ref string) (*Object, error) {
	cleaned, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(cleaned)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", ref, err)
	}
	return &Object{Body: f, ContentType: contentTypeForKey(ref)}, nil
}

// resolve maps a key to a filesystem path, rejecting traversal outside the
// root.
func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := filepath.Join(s.root, filepath.FromSlash(key))
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("resolve store root: %w", err)
	}
	keyAbs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve image path: %w", err)
	}
	if keyAbs != rootAbs && !strings.HasPrefix(keyAbs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("image key %q escapes store root", key)
	}
	return cleaned, nil
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
