package storage

import (
	"context"       // Context for storage calls
	"errors"        // Error matching
	"fmt"           // Error wrapping
	"io"            // Upload streams
	"io/fs"         // Not-exist errors
	"os"            // File system access
	"path/filepath" // Local paths
)

// DiskStore keeps images under a local media directory served by the API itself
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates root if needed
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &DiskStore{root: root, baseURL: baseURL}, nil
}

// Root is the directory images are written to
func (d *DiskStore) Root() string {
	return d.root
}

func (d *DiskStore) Save(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	dest := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create image dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("write image file: %w", err)
	}
	return f.Close()
}

func (d *DiskStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(d.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (d *DiskStore) URL(key string) string {
	return joinURL(d.baseURL, key)
}
