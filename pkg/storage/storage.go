// Package storage persists encoded crops and hands back a URL to them.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/menta2k/face-cropper/pkg/types"
)

// DefaultPrefix is the key prefix for cropped images
const DefaultPrefix = "cropped"

// Uploader stores data under key and returns a URL the caller can fetch it
// from
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Key builds a unique object key for a crop made for spec:
// <prefix>/<label>_<platform>_<W>x<H>_<uuid>.<ext>
func Key(prefix string, spec types.SizeSpec) string {
	return ArtifactKey(prefix, spec.FileName(), spec.Format)
}

// ArtifactKey builds a unique object key <prefix>/<name>_<uuid>.<ext>
func ArtifactKey(prefix, name string, format types.Format) string {
	file := fmt.Sprintf("%s_%s.%s", name, uuid.New().String(), format.Ext())
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}

// validateKey rejects keys that would escape the storage root
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key %q must be relative", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("key %q must not contain '..'", key)
		}
	}
	return nil
}
