package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/logging"
	"github.com/dmitrijs2005/filestore/internal/server/auth"
	"github.com/dmitrijs2005/filestore/internal/server/models"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filestore/internal/server/storage"
)

// checkCanonical accepts paths with a leading separator that are already
// clean (no "..", "//" or trailing separator). The root passes.
func checkCanonical(p string) error {
	if !strings.HasPrefix(p, common.PathSeparator) {
		return fmt.Errorf("%w: %q must start with %s", common.ErrInvalidPath, p, common.PathSeparator)
	}
	if path.Clean(p) != p {
		return fmt.Errorf("%w: %q is not a canonical path", common.ErrInvalidPath, p)
	}
	return nil
}

// ValidatePath accepts canonical file paths, which excludes the root.
func ValidatePath(p string) error {
	if err := checkCanonical(p); err != nil {
		return err
	}
	if p == common.PathSeparator {
		return fmt.Errorf("%w: %q is not a file path", common.ErrInvalidPath, p)
	}
	return nil
}

// PlanParents lists the parent directories of p from the root down, e.g.
// "/a/b/c.txt" gives ["/a", "/a/b"]. It does no I/O.
func PlanParents(p string) []string {
	var parents []string
	for dir := path.Dir(p); dir != common.PathSeparator && dir != "."; dir = path.Dir(dir) {
		parents = append(parents, dir)
	}
	for i, j := 0, len(parents)-1; i < j; i, j = i+1, j-1 {
		parents[i], parents[j] = parents[j], parents[i]
	}
	return parents
}

// Materialization records what Materialize changed. On failure it holds
// the residue left behind, which a retry completes.
type Materialization struct {
	CreatedOnDisk     []string
	InsertedInCatalog []string
}

// Mutator implements create-or-put of uploaded content.
type Mutator struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	backend     storage.Backend
	logger      logging.Logger
	now         func() time.Time
}

func NewMutator(db *sql.DB, m repomanager.RepositoryManager, backend storage.Backend, logger logging.Logger) *Mutator {
	return &Mutator{
		db:          db,
		repomanager: m,
		backend:     backend,
		logger:      logger.With("module", "mutator"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Materialize ensures every directory in parents exists on disk and in the
// catalog, in order. Both steps are idempotent.
func (m *Mutator) Materialize(ctx context.Context, parents []string) (*Materialization, error) {
	report := &Materialization{}
	dirs := m.repomanager.Directories(m.db)
	files := m.repomanager.Files(m.db)

	for _, sub := range parents {
		_, err := dirs.FindByPath(ctx, sub)
		known := err == nil
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return report, err
		}

		if !known {
			if _, err := files.FindByPath(ctx, sub); err == nil {
				return report, fmt.Errorf("%w: parent %s is a file", common.ErrInvalidPath, sub)
			} else if !errors.Is(err, common.ErrorNotFound) {
				return report, err
			}
		}

		created, err := m.backend.EnsureDir(ctx, sub)
		if err != nil {
			return report, err
		}
		if created {
			report.CreatedOnDisk = append(report.CreatedOnDisk, sub)
		}

		if known {
			continue
		}
		if _, err := dirs.Insert(ctx, &models.Directory{Path: sub}); err != nil {
			if !errors.Is(err, common.ErrAlreadyExists) {
				return report, err
			}
			// a concurrent upload inserted it first, unless a file took the path
			if _, ferr := dirs.FindByPath(ctx, sub); ferr != nil {
				return report, fmt.Errorf("%w: parent %s is a file", common.ErrInvalidPath, sub)
			}
			continue
		}
		report.InsertedInCatalog = append(report.InsertedInCatalog, sub)
	}
	return report, nil
}

// CreateOrPut stores content at p on behalf of owner. An existing file is
// overwritten in place (same id, owner and path; new size and timestamp);
// otherwise missing parents are materialized and a new record is created.
func (m *Mutator) CreateOrPut(ctx context.Context, owner auth.Identity, p string, content io.Reader) (*models.File, error) {
	if err := ValidatePath(p); err != nil {
		return nil, err
	}

	files := m.repomanager.Files(m.db)

	existing, err := files.FindByPath(ctx, p)
	switch {
	case err == nil:
		return m.overwrite(ctx, owner, existing, content)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	if _, err := m.repomanager.Directories(m.db).FindByPath(ctx, p); err == nil {
		return nil, fmt.Errorf("%w: %s is a directory", common.ErrInvalidPath, p)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	report, err := m.Materialize(ctx, PlanParents(p))
	if err != nil {
		if report != nil && (len(report.CreatedOnDisk) > 0 || len(report.InsertedInCatalog) > 0) {
			m.logger.Warn(ctx, "partial directory materialization",
				"path", p, "created_on_disk", report.CreatedOnDisk, "inserted", report.InsertedInCatalog, "error", err)
		}
		return nil, err
	}

	size, err := m.backend.Write(ctx, p, content)
	if err != nil {
		return nil, err
	}

	file, err := files.Insert(ctx, &models.File{
		UserID:         owner.UserID,
		Name:           path.Base(p),
		Path:           p,
		Size:           size,
		IsDownloadable: true,
	})
	if err == nil {
		m.logger.Info(ctx, "file created", "path", p, "size", size, "user_id", owner.UserID)
		return file, nil
	}
	if !errors.Is(err, common.ErrAlreadyExists) {
		return nil, err
	}

	// lost the insert race: the bytes on disk are ours, so record them as an update
	existing, ferr := files.FindByPath(ctx, p)
	if ferr != nil {
		if errors.Is(ferr, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: %s is a directory", common.ErrInvalidPath, p)
		}
		return nil, ferr
	}
	if existing.UserID != owner.UserID {
		return nil, fmt.Errorf("%w: %s belongs to another user", common.ErrAccessDenied, p)
	}
	return m.update(ctx, existing, size)
}

func (m *Mutator) overwrite(ctx context.Context, owner auth.Identity, existing *models.File, content io.Reader) (*models.File, error) {
	if existing.UserID != owner.UserID {
		return nil, fmt.Errorf("%w: %s belongs to another user", common.ErrAccessDenied, existing.Path)
	}

	size, err := m.backend.Write(ctx, existing.Path, content)
	if err != nil {
		return nil, err
	}
	return m.update(ctx, existing, size)
}

func (m *Mutator) update(ctx context.Context, existing *models.File, size int64) (*models.File, error) {
	existing.Size = size
	existing.CreatedAt = m.now()

	updated, err := m.repomanager.Files(m.db).Update(ctx, existing)
	if err != nil {
		return nil, err
	}
	m.logger.Info(ctx, "file overwritten", "path", updated.Path, "size", size, "id", updated.ID)
	return updated, nil
}
