// Package storage is the filesystem collaborator: a hierarchical byte store
// addressed by canonical paths ("/a/b.txt") relative to a configured root.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
)

// Info describes a stored file or directory.
type Info struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Backend stores file bytes. Missing objects yield common.ErrorNotFound;
// other I/O failures are wrapped in common.ErrStorageIO.
type Backend interface {
	// EnsureDir creates the directory at p if it does not exist yet and
	// reports whether it did. The parent must already exist.
	EnsureDir(ctx context.Context, p string) (bool, error)
	// Write replaces the content at p with r and returns the byte count.
	Write(ctx context.Context, p string, r io.Reader) (int64, error)
	Open(ctx context.Context, p string) (io.ReadCloser, error)
	Stat(ctx context.Context, p string) (Info, error)
	// ListFiles returns the regular files directly inside dir, sorted by
	// name. Subdirectories are skipped.
	ListFiles(ctx context.Context, dir string) ([]Info, error)
}

// checkPath accepts canonical absolute paths only. The root itself is
// allowed so that top-level listings work.
func checkPath(p string) error {
	if len(p) == 0 || p[0] != '/' || path.Clean(p) != p {
		return fmt.Errorf("%w: %q", common.ErrInvalidPath, p)
	}
	return nil
}

func ioError(op, p string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", common.ErrStorageIO, op, p, err)
}
