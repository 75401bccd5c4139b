package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filestore/internal/archive"
	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/logging"
	prometheus "github.com/dmitrijs2005/filestore/internal/metrics"
	"github.com/dmitrijs2005/filestore/internal/server/storage"
)

var (
	archiveCount = prometheus.StorageNamespace.NewLabeledCounter("archives", "The number of archives built", "format")
	archiveTimer = prometheus.StorageNamespace.NewLabeledTimer("archive_build", "Number of seconds taken to build an archive", "format")
)

// Archive is a fully built archive held in memory.
type Archive struct {
	Data      []byte
	MediaType string
	FileName  string
}

// Archiver bundles a stored file, or the files directly inside a stored
// directory, into a zip, tar.gz or 7z archive.
type Archiver struct {
	resolver *Resolver
	backend  storage.Backend
	logger   logging.Logger
}

func NewArchiver(resolver *Resolver, backend storage.Backend, logger logging.Logger) *Archiver {
	return &Archiver{resolver: resolver, backend: backend, logger: logger.With("module", "archiver")}
}

// Build validates compressionType before any I/O, resolves a bare id to a
// path, and archives what the path names. Subdirectories are skipped.
func (a *Archiver) Build(ctx context.Context, locator string, compressionType string) (*Archive, error) {
	format, err := archive.ParseFormat(compressionType)
	if err != nil {
		return nil, err
	}

	p := locator
	if !IsPathLocator(p) {
		p, err = a.resolver.PathByID(ctx, p)
		if err != nil {
			return nil, err
		}
	}
	if err := checkCanonical(p); err != nil {
		return nil, err
	}

	start := time.Now()

	info, err := a.backend.Stat(ctx, p)
	if err != nil {
		return nil, err
	}

	entries := []storage.Info{info}
	if info.IsDir {
		entries, err = a.backend.ListFiles(ctx, p)
		if err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	w, err := archive.NewWriter(format, &buf)
	if err != nil {
		return nil, err
	}
	added := 0
	for _, e := range entries {
		err := a.add(ctx, w, e)
		if info.IsDir && errors.Is(err, common.ErrorNotFound) {
			// removed after the listing
			a.logger.Debug(ctx, "archive entry vanished", "path", e.Path)
			continue
		}
		if err != nil {
			return nil, err
		}
		added++
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: finish %s archive: %w", common.ErrStorageIO, format, err)
	}

	archiveCount.WithValues(string(format)).Inc(1)
	archiveTimer.WithValues(string(format)).UpdateSince(start)
	a.logger.Debug(ctx, "archive built", "path", p, "format", format, "entries", added, "bytes", buf.Len())

	return &Archive{Data: buf.Bytes(), MediaType: format.MediaType(), FileName: format.FileName()}, nil
}

func (a *Archiver) add(ctx context.Context, w archive.Writer, e storage.Info) error {
	rc, err := a.backend.Open(ctx, e.Path)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := w.Add(archive.Entry{Name: e.Name, ModTime: e.ModTime}, rc); err != nil {
		return fmt.Errorf("%w: %w", common.ErrStorageIO, err)
	}
	return nil
}
