package services

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/logging"
	"github.com/dmitrijs2005/filestore/internal/server/cache"
	"github.com/dmitrijs2005/filestore/internal/server/storage"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingBackend records how many calls reach the wrapped backend.
type countingBackend struct {
	storage.Backend
	calls int
}

func (b *countingBackend) Stat(ctx context.Context, p string) (storage.Info, error) {
	b.calls++
	return b.Backend.Stat(ctx, p)
}

func (b *countingBackend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	b.calls++
	return b.Backend.Open(ctx, p)
}

func (b *countingBackend) ListFiles(ctx context.Context, dir string) ([]storage.Info, error) {
	b.calls++
	return b.Backend.ListFiles(ctx, dir)
}

type archiveFixture struct {
	catalog  *memCatalog
	backend  *countingBackend
	mutator  *Mutator
	resolver *Resolver
	archiver *Archiver
}

func newArchiveFixture(t *testing.T) *archiveFixture {
	t.Helper()
	c := newMemCatalog()
	local, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	b := &countingBackend{Backend: local}
	m := &fakeRepoManager{c: c}
	r := NewResolver(nil, m, cache.NewAside(cache.NewMemoryStore(), time.Minute, logging.Discard()), time.Hour)
	return &archiveFixture{
		catalog:  c,
		backend:  b,
		mutator:  NewMutator(nil, m, b, logging.Discard()),
		resolver: r,
		archiver: NewArchiver(r, b, logging.Discard()),
	}
}

func (f *archiveFixture) upload(t *testing.T, p, body string) {
	t.Helper()
	_, err := f.mutator.CreateOrPut(context.Background(), alice, p, strings.NewReader(body))
	require.NoError(t, err)
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		out[f.Name] = string(body)
	}
	return out
}

func tarEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	out := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		out[hdr.Name] = string(body)
	}
	return out
}

func TestArchiver_UnsupportedFormatDoesNoIO(t *testing.T) {
	f := newArchiveFixture(t)
	f.upload(t, "/a.txt", "x")
	f.backend.calls = 0
	lookups := f.catalog.fileLookups

	_, err := f.archiver.Build(context.Background(), "/a.txt", "rar")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Zero(t, f.backend.calls)
	assert.Equal(t, lookups, f.catalog.fileLookups)
}

// Upload, resolve, download raw, then download as a zip.
func TestArchiver_UploadResolveDownloadZip(t *testing.T) {
	f := newArchiveFixture(t)
	ctx := context.Background()
	body := strings.Repeat("0123456789abcdef", 2)
	f.upload(t, "/a.txt", body)

	obj, err := f.resolver.Resolve(ctx, "/a.txt")
	require.NoError(t, err)
	require.False(t, obj.IsDir())
	assert.Equal(t, int64(32), obj.File.Size)

	file, err := f.resolver.FileForDownload(ctx, "/a.txt")
	require.NoError(t, err)
	assert.True(t, file.IsDownloadable)
	rc, err := f.backend.Open(ctx, file.Path)
	require.NoError(t, err)
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, body, string(raw))

	a, err := f.archiver.Build(ctx, "/a.txt", "zip")
	require.NoError(t, err)
	assert.Equal(t, "application/x-zip-compressed", a.MediaType)
	assert.Equal(t, "archive.zip", a.FileName)
	assert.Equal(t, map[string]string{"a.txt": body}, zipEntries(t, a.Data))
}

func TestArchiver_DirectoryIsNotRecursive(t *testing.T) {
	f := newArchiveFixture(t)
	f.upload(t, "/d/x.txt", "xx")
	f.upload(t, "/d/y.txt", "yyy")
	f.upload(t, "/d/sub/z.txt", "nested")

	a, err := f.archiver.Build(context.Background(), "/d", "tar")
	require.NoError(t, err)
	assert.Equal(t, "application/x-gtar", a.MediaType)
	assert.Equal(t, "archive.tar", a.FileName)
	assert.Equal(t, map[string]string{"x.txt": "xx", "y.txt": "yyy"}, tarEntries(t, a.Data))
}

func TestArchiver_ByID(t *testing.T) {
	f := newArchiveFixture(t)
	ctx := context.Background()
	f.upload(t, "/d/x.txt", "xx")

	fileID := f.catalog.files["/d/x.txt"].ID
	a, err := f.archiver.Build(ctx, fileID, "zip")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x.txt": "xx"}, zipEntries(t, a.Data))

	dirID := f.catalog.dirs["/d"].ID
	a, err = f.archiver.Build(ctx, dirID, "zip")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x.txt": "xx"}, zipEntries(t, a.Data))
}

func TestArchiver_SevenZip(t *testing.T) {
	f := newArchiveFixture(t)
	f.upload(t, "/s.txt", "seven")

	a, err := f.archiver.Build(context.Background(), "/s.txt", "7z")
	require.NoError(t, err)
	assert.Equal(t, "application/x-7z-compressed", a.MediaType)
	assert.Equal(t, "archive.7z", a.FileName)
	assert.True(t, bytes.HasPrefix(a.Data, []byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}))
}

func TestArchiver_Errors(t *testing.T) {
	f := newArchiveFixture(t)
	ctx := context.Background()

	_, err := f.archiver.Build(ctx, "/missing.txt", "zip")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.archiver.Build(ctx, "00000000-0000-0000-0000-000000000000", "zip")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.archiver.Build(ctx, "/a/../b", "zip")
	assert.ErrorIs(t, err, common.ErrInvalidPath)

	_, err = f.archiver.Build(ctx, "a/b", "zip")
	assert.ErrorIs(t, err, common.ErrInvalidPath)
}

// vanishingBackend reports gone as missing on Open, as if it were
// removed after the directory was listed.
type vanishingBackend struct {
	storage.Backend
	gone string
}

func (b *vanishingBackend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if p == b.gone {
		return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, p)
	}
	return b.Backend.Open(ctx, p)
}

func TestArchiver_DirectoryEntryRemovedAfterListing(t *testing.T) {
	f := newArchiveFixture(t)
	f.upload(t, "/d/x.txt", "xx")
	f.upload(t, "/d/y.txt", "yyy")

	b := &vanishingBackend{Backend: f.backend, gone: "/d/y.txt"}
	a, err := NewArchiver(f.resolver, b, logging.Discard()).Build(context.Background(), "/d", "zip")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x.txt": "xx"}, zipEntries(t, a.Data))

	// a single file that disappears is still an error
	_, err = NewArchiver(f.resolver, b, logging.Discard()).Build(context.Background(), "/d/y.txt", "zip")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

// archivingReader builds an archive of dir on its first Read, while the
// upload it feeds is still streaming.
type archivingReader struct {
	t       *testing.T
	f       *archiveFixture
	dir     string
	r       io.Reader
	entries map[string]string
}

func (a *archivingReader) Read(p []byte) (int, error) {
	if a.entries == nil {
		built, err := a.f.archiver.Build(context.Background(), a.dir, "zip")
		require.NoError(a.t, err)
		a.entries = zipEntries(a.t, built.Data)
	}
	return a.r.Read(p)
}

func TestArchiver_DirectoryExcludesUploadInFlight(t *testing.T) {
	f := newArchiveFixture(t)
	f.upload(t, "/d/x.txt", "xx")

	ar := &archivingReader{t: t, f: f, dir: "/d", r: strings.NewReader("partial")}
	_, err := f.mutator.CreateOrPut(context.Background(), alice, "/d/y.txt", ar)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"x.txt": "xx"}, ar.entries)
}

func TestArchiver_Root(t *testing.T) {
	f := newArchiveFixture(t)
	f.upload(t, "/top.txt", "t")
	f.upload(t, "/d/x.txt", "xx")

	a, err := f.archiver.Build(context.Background(), "/", "zip")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"top.txt": "t"}, zipEntries(t, a.Data))
}
