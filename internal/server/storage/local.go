package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/filex"
)

// stagingDir holds in-flight uploads. It sits under root so the final
// rename stays on one filesystem, and is never reachable by a stored path.
const stagingDir = ".staging"

// LocalBackend keeps files on the local disk under root.
type LocalBackend struct {
	root    string
	staging string
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend creates root and its staging area if needed.
func NewLocalBackend(root string) (*LocalBackend, error) {
	abs, err := filex.EnsureRoot(root)
	if err != nil {
		return nil, ioError("init", root, err)
	}
	staging := filepath.Join(abs, stagingDir)
	if err := os.MkdirAll(staging, 0o770); err != nil {
		return nil, ioError("init", staging, err)
	}
	return &LocalBackend{root: abs, staging: staging}, nil
}

func (b *LocalBackend) Root() string {
	return b.root
}

func (b *LocalBackend) full(p string) (string, error) {
	if err := checkPath(p); err != nil {
		return "", err
	}
	if isStaging(p) {
		return "", fmt.Errorf("%w: %q is reserved", common.ErrInvalidPath, p)
	}
	return filepath.Join(b.root, filepath.FromSlash(p)), nil
}

func (b *LocalBackend) EnsureDir(ctx context.Context, p string) (bool, error) {
	full, err := b.full(p)
	if err != nil {
		return false, err
	}

	fi, err := os.Stat(full)
	switch {
	case err == nil && fi.IsDir():
		return false, nil
	case err == nil:
		return false, fmt.Errorf("%w: %s is a file", common.ErrInvalidPath, p)
	case !errors.Is(err, fs.ErrNotExist):
		return false, ioError("stat", p, err)
	}

	if err := os.Mkdir(full, 0o770); err != nil {
		// lost a race with a concurrent upload
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, ioError("mkdir", p, err)
	}
	return true, nil
}

func isStaging(p string) bool {
	first, _, _ := strings.Cut(strings.TrimPrefix(p, "/"), "/")
	return first == stagingDir
}

// Write streams r into a temporary file in the staging area and renames it
// into place, so neither readers nor listings observe a partial file.
func (b *LocalBackend) Write(ctx context.Context, p string, r io.Reader) (int64, error) {
	full, err := b.full(p)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(b.staging, filepath.Base(full)+".*.tmp")
	if err != nil {
		return 0, ioError("create", p, err)
	}
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return 0, ioError("write", p, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, ioError("sync", p, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, ioError("close", p, err)
	}
	if err := os.Chmod(tmp.Name(), 0o660); err != nil {
		return 0, ioError("chmod", p, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return 0, ioError("rename", p, err)
	}
	return n, nil
}

func (b *LocalBackend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	info, err := b.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrInvalidPath, p)
	}

	full, _ := b.full(p)
	f, err := os.Open(full)
	if err != nil {
		return nil, b.classify("open", p, err)
	}
	return f, nil
}

func (b *LocalBackend) Stat(ctx context.Context, p string) (Info, error) {
	full, err := b.full(p)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		return Info{}, b.classify("stat", p, err)
	}
	return Info{
		Path:    p,
		Name:    path.Base(p),
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		IsDir:   fi.IsDir(),
	}, nil
}

func (b *LocalBackend) ListFiles(ctx context.Context, dir string) ([]Info, error) {
	full, err := b.full(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, b.classify("readdir", dir, err)
	}

	result := []Info{}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, ioError("stat", dir, err)
		}
		result = append(result, Info{
			Path:    path.Join(dir, e.Name()),
			Name:    e.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	return result, nil
}

func (b *LocalBackend) classify(op, p string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", common.ErrorNotFound, p)
	}
	return ioError(op, p, err)
}
