// Package storage persists uploaded recipe images.
package storage

import (
	"context" // Context for storage calls
	"io"      // Upload streams
	"path"    // Key joining
	"strings" // Extension handling

	"github.com/google/uuid" // Unique object keys
)

// ImageStore saves and removes image objects addressed by key
type ImageStore interface {
	Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// URL returns the address clients use to fetch key
	URL(key string) string
}

// RecipeImageKey builds a collision-free object key for a recipe image,
// keeping the extension of the detected content type.
func RecipeImageKey(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join("uploads", "recipe", uuid.NewString()+ext)
}

func joinURL(base, key string) string {
	if base == "" {
		return "/" + key
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
