// Package directories is the catalog accessor for directory records.
package directories

import (
	"context"

	"github.com/dmitrijs2005/filestore/internal/dbx"
	"github.com/dmitrijs2005/filestore/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByPath(ctx context.Context, path string) (*models.Directory, error) {
	d := &models.Directory{}
	err := r.db.QueryRowContext(ctx, `SELECT id, path FROM directories WHERE path = $1`, path).Scan(&d.ID, &d.Path)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return d, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Directory, error) {
	d := &models.Directory{}
	err := r.db.QueryRowContext(ctx, `SELECT id, path FROM directories WHERE id = $1`, id).Scan(&d.ID, &d.Path)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return d, nil
}

// Insert stores a directory and fills in its generated id. A path that is
// already a directory (or a file) yields common.ErrAlreadyExists.
func (r *PostgresRepository) Insert(ctx context.Context, dir *models.Directory) (*models.Directory, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO directories (path) VALUES ($1) RETURNING id`, dir.Path).Scan(&dir.ID)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return dir, nil
}
