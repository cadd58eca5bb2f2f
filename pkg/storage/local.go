package storage

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/menta2k/face-cropper/pkg/errors"
)

// Local writes objects below a directory and returns file:// URLs
type Local struct {
	dir string
}

var _ Uploader = (*Local)(nil)

// NewLocal creates a Local uploader rooted at dir
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "invalid output directory %s", dir)
	}
	return &Local{dir: abs}, nil
}

// Upload writes data to <dir>/<key>
func (l *Local) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "upload of %s cancelled", key)
	}
	if err := validateKey(key); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "invalid key")
	}

	target := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "failed to create directory for %s", key)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "failed to write %s", key)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String(), nil
}
