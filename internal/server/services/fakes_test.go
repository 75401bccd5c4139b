package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/filestore/internal/common"
	"github.com/dmitrijs2005/filestore/internal/dbx"
	"github.com/dmitrijs2005/filestore/internal/server/models"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/directories"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/files"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/users"
	"github.com/google/uuid"
)

// memCatalog is an in-memory catalog. Paths are unique across files and
// directories, like the real schema.
type memCatalog struct {
	mu     sync.Mutex
	files  map[string]*models.File
	dirs   map[string]*models.Directory
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken

	healthy bool
	// err, when set, is returned by every files and directories call.
	err error
	// dirInsertErr fails directory inserts for the given paths.
	dirInsertErr map[string]error
	// beforeFileInsert runs (unlocked) ahead of each file insert.
	beforeFileInsert func()

	fileLookups int
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		files:        map[string]*models.File{},
		dirs:         map[string]*models.Directory{},
		users:        map[string]*models.User{},
		tokens:       map[string]*models.RefreshToken{},
		healthy:      true,
		dirInsertErr: map[string]error{},
	}
}

func (c *memCatalog) taken(p string) bool {
	_, f := c.files[p]
	_, d := c.dirs[p]
	return f || d
}

func (c *memCatalog) addFile(f models.File) *models.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	c.files[f.Path] = &f
	out := f
	return &out
}

func (c *memCatalog) addDir(p string) *models.Directory {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := &models.Directory{ID: uuid.NewString(), Path: p}
	c.dirs[p] = d
	out := *d
	return &out
}

type memFiles struct{ c *memCatalog }

func (r memFiles) FindByPath(_ context.Context, p string) (*models.File, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.fileLookups++
	if r.c.err != nil {
		return nil, r.c.err
	}
	f, ok := r.c.files[p]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *f
	return &out, nil
}

func (r memFiles) FindByID(_ context.Context, id string) (*models.File, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.fileLookups++
	if r.c.err != nil {
		return nil, r.c.err
	}
	for _, f := range r.c.files {
		if f.ID == id {
			out := *f
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memFiles) ListByOwner(_ context.Context, userID string) ([]*models.File, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.err != nil {
		return nil, r.c.err
	}
	result := []*models.File{}
	for _, f := range r.c.files {
		if f.UserID == userID {
			out := *f
			result = append(result, &out)
		}
	}
	return result, nil
}

func (r memFiles) Insert(_ context.Context, f *models.File) (*models.File, error) {
	if r.c.beforeFileInsert != nil {
		r.c.beforeFileInsert()
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.err != nil {
		return nil, r.c.err
	}
	if r.c.taken(f.Path) {
		return nil, common.ErrAlreadyExists
	}
	rec := *f
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	r.c.files[rec.Path] = &rec
	out := rec
	return &out, nil
}

func (r memFiles) Update(_ context.Context, f *models.File) (*models.File, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.err != nil {
		return nil, r.c.err
	}
	cur, ok := r.c.files[f.Path]
	if !ok || cur.ID != f.ID {
		return nil, common.ErrorNotFound
	}
	cur.Size = f.Size
	cur.CreatedAt = f.CreatedAt
	out := *cur
	return &out, nil
}

func (r memFiles) HealthCheck(context.Context) bool {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.c.healthy
}

type memDirs struct{ c *memCatalog }

func (r memDirs) FindByPath(_ context.Context, p string) (*models.Directory, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.err != nil {
		return nil, r.c.err
	}
	d, ok := r.c.dirs[p]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *d
	return &out, nil
}

func (r memDirs) FindByID(_ context.Context, id string) (*models.Directory, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.err != nil {
		return nil, r.c.err
	}
	for _, d := range r.c.dirs {
		if d.ID == id {
			out := *d
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memDirs) Insert(_ context.Context, d *models.Directory) (*models.Directory, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.err != nil {
		return nil, r.c.err
	}
	if err := r.c.dirInsertErr[d.Path]; err != nil {
		return nil, err
	}
	if r.c.taken(d.Path) {
		return nil, common.ErrAlreadyExists
	}
	rec := &models.Directory{ID: uuid.NewString(), Path: d.Path}
	r.c.dirs[d.Path] = rec
	out := *rec
	return &out, nil
}

type memUsers struct{ c *memCatalog }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, x := range r.c.users {
		if x.UserName == u.UserName {
			return nil, common.ErrAlreadyExists
		}
	}
	rec := *u
	rec.ID = uuid.NewString()
	r.c.users[rec.ID] = &rec
	out := rec
	return &out, nil
}

func (r memUsers) GetByUsername(_ context.Context, name string) (*models.User, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, x := range r.c.users {
		if x.UserName == name {
			out := *x
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	x, ok := r.c.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *x
	return &out, nil
}

type memTokens struct{ c *memCatalog }

func (r memTokens) Create(_ context.Context, userID, token string, expires time.Time) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.tokens[token] = &models.RefreshToken{ID: uuid.NewString(), UserID: userID, Token: token, Expires: expires}
	return nil
}

func (r memTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	t, ok := r.c.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *t
	return &out, nil
}

func (r memTokens) Delete(_ context.Context, token string) error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.c.tokens, token)
	return nil
}

type fakeRepoManager struct{ c *memCatalog }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return memUsers{m.c} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return memTokens{m.c}
}
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository             { return memFiles{m.c} }
func (m *fakeRepoManager) Directories(dbx.DBTX) directories.Repository { return memDirs{m.c} }
