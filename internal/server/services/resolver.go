package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/server/auth"
	"github.com/dmitrijs2005/filestore/internal/server/cache"
	"github.com/dmitrijs2005/filestore/internal/server/models"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Object is a resolved catalog record: exactly one of File and Directory
// is set.
type Object struct {
	File      *models.File
	Directory *models.Directory
}

func (o *Object) IsDir() bool {
	return o.Directory != nil
}

func (o *Object) Path() string {
	if o.Directory != nil {
		return o.Directory.Path
	}
	return o.File.Path
}

// Listing is the set of files owned by one account.
type Listing struct {
	AccountID string
	Files     []*models.File
}

// Resolver turns a locator into a catalog record. A locator containing the
// path separator is a path, anything else is an object id.
type Resolver struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *cache.Aside
	idTTL       time.Duration
}

func NewResolver(db *sql.DB, m repomanager.RepositoryManager, aside *cache.Aside, idTTL time.Duration) *Resolver {
	return &Resolver{db: db, repomanager: m, cache: aside, idTTL: idTTL}
}

// IsPathLocator reports whether locator addresses by path rather than id.
func IsPathLocator(locator string) bool {
	return strings.Contains(locator, common.PathSeparator)
}

// normalizePath makes sure a path locator starts with the separator.
func normalizePath(locator string) string {
	if strings.HasPrefix(locator, common.PathSeparator) {
		return locator
	}
	return common.PathSeparator + locator
}

// checkID rejects ids that cannot exist without asking the catalog.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: id %q", common.ErrorNotFound, id)
	}
	return nil
}

// Resolve looks the locator up in the catalog, trying files before
// directories. It always reads fresh.
func (r *Resolver) Resolve(ctx context.Context, locator string) (*Object, error) {
	files := r.repomanager.Files(r.db)
	dirs := r.repomanager.Directories(r.db)

	if IsPathLocator(locator) {
		p := normalizePath(locator)
		f, err := files.FindByPath(ctx, p)
		if err == nil {
			return &Object{File: f}, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		d, err := dirs.FindByPath(ctx, p)
		if err != nil {
			return nil, err
		}
		return &Object{Directory: d}, nil
	}

	if err := checkID(locator); err != nil {
		return nil, err
	}
	f, err := files.FindByID(ctx, locator)
	if err == nil {
		return &Object{File: f}, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	d, err := dirs.FindByID(ctx, locator)
	if err != nil {
		return nil, err
	}
	return &Object{Directory: d}, nil
}

// FileForDownload resolves a File for direct download, through the cache
// keyed by the literal locator. It reports IsDownloadable but does not
// enforce it.
func (r *Resolver) FileForDownload(ctx context.Context, locator string) (*models.File, error) {
	compute := func(ctx context.Context) (*models.File, error) {
		files := r.repomanager.Files(r.db)
		if IsPathLocator(locator) {
			return files.FindByPath(ctx, normalizePath(locator))
		}
		if err := checkID(locator); err != nil {
			return nil, err
		}
		return files.FindByID(ctx, locator)
	}
	return cache.GetOrCompute(ctx, r.cache, cache.Key(cache.OpFileByPath, locator), compute, cache.FileSchema, 0)
}

// PathByID maps an object id to the canonical path of the File or
// Directory it names. Results are cached with the id TTL.
func (r *Resolver) PathByID(ctx context.Context, id string) (string, error) {
	compute := func(ctx context.Context) (string, error) {
		if err := checkID(id); err != nil {
			return "", err
		}
		f, err := r.repomanager.Files(r.db).FindByID(ctx, id)
		if err == nil {
			return f.Path, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return "", err
		}
		d, err := r.repomanager.Directories(r.db).FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		return d.Path, nil
	}
	return cache.GetOrCompute(ctx, r.cache, cache.Key(cache.OpPathByID, id), compute, cache.PathSchema, r.idTTL)
}

// ListOwned returns every file owned by the caller, cached with the
// default TTL. Uploads do not invalidate it.
func (r *Resolver) ListOwned(ctx context.Context, owner auth.Identity) (*Listing, error) {
	compute := func(ctx context.Context) ([]*models.File, error) {
		return r.repomanager.Files(r.db).ListByOwner(ctx, owner.UserID)
	}
	files, err := cache.GetOrCompute(ctx, r.cache, cache.Key(cache.OpFilesForUserID, owner.UserID), compute, cache.ListingSchema, 0)
	if err != nil {
		return nil, err
	}
	return &Listing{AccountID: owner.UserID, Files: files}, nil
}
