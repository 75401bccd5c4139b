package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/logging"
	"github.com/dmitrijs2005/filestore/internal/server/auth"
	"github.com/dmitrijs2005/filestore/internal/server/cache"
	"github.com/dmitrijs2005/filestore/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(c *memCatalog) *Resolver {
	aside := cache.NewAside(cache.NewMemoryStore(), time.Minute, logging.Discard())
	return NewResolver(nil, &fakeRepoManager{c: c}, aside, time.Hour)
}

func TestIsPathLocator(t *testing.T) {
	assert.True(t, IsPathLocator("/a.txt"))
	assert.True(t, IsPathLocator("a/b.txt"))
	assert.False(t, IsPathLocator("4f1c6bd8-0cf4-4a55-9b1e-1f6a1c0b8c11"))
	assert.False(t, IsPathLocator("a.txt"))
}

func TestResolver_Resolve(t *testing.T) {
	c := newMemCatalog()
	f := c.addFile(models.File{UserID: "u1", Name: "b.txt", Path: "/a/b.txt", Size: 3})
	d := c.addDir("/a")
	r := newTestResolver(c)
	ctx := context.Background()

	tests := []struct {
		name    string
		locator string
		isDir   bool
		path    string
		wantErr error
	}{
		{name: "file by path", locator: "/a/b.txt", path: "/a/b.txt"},
		{name: "path without leading separator", locator: "a/b.txt", path: "/a/b.txt"},
		{name: "dir by path", locator: "/a", isDir: true, path: "/a"},
		{name: "file by id", locator: f.ID, path: "/a/b.txt"},
		{name: "dir by id", locator: d.ID, isDir: true, path: "/a"},
		{name: "missing path", locator: "/nope", wantErr: common.ErrorNotFound},
		{name: "missing id", locator: "00000000-0000-0000-0000-000000000000", wantErr: common.ErrorNotFound},
		{name: "malformed id", locator: "not-an-id", wantErr: common.ErrorNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := r.Resolve(ctx, tt.locator)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.isDir, obj.IsDir())
			assert.Equal(t, tt.path, obj.Path())
		})
	}
}

func TestResolver_MalformedIDSkipsCatalog(t *testing.T) {
	c := newMemCatalog()
	r := newTestResolver(c)

	_, err := r.Resolve(context.Background(), "xyz")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Zero(t, c.fileLookups)
}

func TestResolver_FileForDownloadIsCached(t *testing.T) {
	c := newMemCatalog()
	c.addFile(models.File{UserID: "u1", Name: "a.txt", Path: "/a.txt", Size: 32, IsDownloadable: true})
	r := newTestResolver(c)
	ctx := context.Background()

	first, err := r.FileForDownload(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(32), first.Size)
	assert.True(t, first.IsDownloadable)

	// a second read within the TTL is served from the cache
	c.err = assert.AnError
	second, err := r.FileForDownload(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, c.fileLookups)
}

func TestResolver_FileForDownloadNotFoundIsNotCached(t *testing.T) {
	c := newMemCatalog()
	r := newTestResolver(c)
	ctx := context.Background()

	_, err := r.FileForDownload(ctx, "/late.txt")
	require.ErrorIs(t, err, common.ErrorNotFound)

	c.addFile(models.File{UserID: "u1", Name: "late.txt", Path: "/late.txt", Size: 1})
	f, err := r.FileForDownload(ctx, "/late.txt")
	require.NoError(t, err)
	assert.Equal(t, "/late.txt", f.Path)
}

func TestResolver_FileForDownloadByID(t *testing.T) {
	c := newMemCatalog()
	f := c.addFile(models.File{UserID: "u1", Name: "a.txt", Path: "/a.txt"})
	r := newTestResolver(c)

	got, err := r.FileForDownload(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "/a.txt", got.Path)

	_, err = r.FileForDownload(context.Background(), "bogus")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestResolver_PathByID(t *testing.T) {
	c := newMemCatalog()
	f := c.addFile(models.File{UserID: "u1", Name: "x.bin", Path: "/d/x.bin"})
	d := c.addDir("/d")
	r := newTestResolver(c)
	ctx := context.Background()

	p, err := r.PathByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "/d/x.bin", p)

	p, err = r.PathByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "/d", p)

	_, err = r.PathByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestResolver_ListOwned(t *testing.T) {
	c := newMemCatalog()
	c.addFile(models.File{UserID: "u1", Name: "a.txt", Path: "/a.txt"})
	c.addFile(models.File{UserID: "u1", Name: "b.txt", Path: "/b.txt"})
	c.addFile(models.File{UserID: "u2", Name: "c.txt", Path: "/c.txt"})
	r := newTestResolver(c)
	ctx := context.Background()

	l, err := r.ListOwned(ctx, auth.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", l.AccountID)
	assert.Len(t, l.Files, 2)

	empty, err := r.ListOwned(ctx, auth.Identity{UserID: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, empty.Files)
	assert.Empty(t, empty.Files)

	// cached: uploads made after the first listing are not visible yet
	c.addFile(models.File{UserID: "u1", Name: "d.txt", Path: "/d.txt"})
	again, err := r.ListOwned(ctx, auth.Identity{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, again.Files, 2)
}

func TestResolver_CatalogErrorPropagates(t *testing.T) {
	c := newMemCatalog()
	c.err = common.ErrCatalogUnavailable
	r := newTestResolver(c)

	_, err := r.Resolve(context.Background(), "/a.txt")
	assert.ErrorIs(t, err, common.ErrCatalogUnavailable)
	_, err = r.ListOwned(context.Background(), auth.Identity{UserID: "u1"})
	assert.ErrorIs(t, err, common.ErrCatalogUnavailable)
}
