// Package artifact loads versioned model artifacts and stores run outputs.
// Artifacts are immutable: a new model version is a new key, never an
// overwrite of a served one.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jaspersunnyson/dana-po-cloud-free/internal/domain"
)

// LocalStore serves artifacts from a directory tree.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// Fetch reads an artifact by key. Keys are slash-separated paths under the
// root; escaping the root is rejected.
func (s *LocalStore) Fetch(_ context.Context, key string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("%w: artifact key %q escapes store root", domain.ErrModelUnavailable, key)
	}
	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrModelUnavailable, key)
		}
		return nil, fmt.Errorf("reading artifact %s: %w", key, err)
	}
	return data, nil
}
