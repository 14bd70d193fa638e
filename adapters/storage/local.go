// Package storage provides output sinks: local files for path targets and
// S3-compatible object storage for s3:// targets.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/Erithax/zune-image/errors"
)

// Local creates output files on the local filesystem.
type Local struct {
	permissions os.FileMode
	makeDirs    bool
}

// NewLocal returns a Local sink. perm defaults to 0644. When makeDirs is set,
// missing parent directories are created.
func NewLocal(perm os.FileMode, makeDirs bool) *Local {
	if perm == 0 {
		perm = 0o644
	}
	return &Local{permissions: perm, makeDirs: makeDirs}
}

// Create opens path for writing, creating or truncating it. The caller must
// close the returned handle.
func (l *Local) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.create", err)
	}
	if l.makeDirs {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.create.mkdir", err)
			}
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.create.open", err)
	}
	return f, nil
}
