// Package storage writes processed images to the local filesystem.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Skryldev/image-toolkit/config"
	apperrors "github.com/Skryldev/image-toolkit/errors"
)

// SidecarSuffix is appended to an output path for its metadata file.
const SidecarSuffix = ".meta.json"

// Local stores images on the local filesystem.
type Local struct {
	rootDir     string
	permissions os.FileMode
	sidecar     bool
}

// NewLocal creates a Local storage adapter rooted at dir.
func NewLocal(dir string, perm os.FileMode, sidecar bool) (*Local, error) {
	if perm == 0 {
		perm = 0o644
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.new", fmt.Errorf("mkdir %s: %w", dir, err))
	}
	return &Local{rootDir: dir, permissions: perm, sidecar: sidecar}, nil
}

// NewLocalFromConfig uses the output section of cfg.
func NewLocalFromConfig(cfg config.OutputConfig) (*Local, error) {
	return NewLocal(cfg.Dir, os.FileMode(cfg.Permissions), cfg.Sidecar)
}

// Path resolves name against the root.  Absolute names are used as is.
func (l *Local) Path(name string) string {
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(l.rootDir, filepath.Clean(name))
}

// Put writes r to name and, when side-cars are enabled and meta is not
// empty, meta as JSON next to it.
func (l *Local) Put(ctx context.Context, name string, r io.Reader, meta map[string]any) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put", err)
	}
	if name == "" {
		return apperrors.New(apperrors.CategoryStorage, "local.put", errors.New("empty output name"))
	}

	path := l.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.mkdir", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.open", err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.copy", err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.close", err)
	}

	if !l.sidecar || len(meta) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.meta", err)
	}
	if err := os.WriteFile(path+SidecarSuffix, append(data, '\n'), l.permissions); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.meta", err)
	}
	return nil
}

// Get opens name for reading.
func (l *Local) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get", err)
	}
	f, err := os.Open(l.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategoryStorage, "local.get", fmt.Errorf("not found: %s: %w", name, err))
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get.open", err)
	}
	return f, nil
}

// Exists reports whether name is present.
func (l *Local) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists", err)
	}
	_, err := os.Stat(l.Path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists.stat", err)
}
