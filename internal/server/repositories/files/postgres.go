// Package files is the catalog accessor for file records.
package files

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/filestore/internal/dbx"
	"github.com/dmitrijs2005/filestore/internal/server/models"
)

const fileColumns = `id, user_id, name, path, size, created_at, is_downloadable`

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*models.File, error) {
	f := &models.File{}
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Path, &f.Size, &f.CreatedAt, &f.IsDownloadable); err != nil {
		return nil, err
	}
	return f, nil
}

// FindByPath returns the file with the exact canonical path.
func (r *PostgresRepository) FindByPath(ctx context.Context, path string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE path = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, path))
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return f, nil
}

// FindByID returns the file with the given primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return f, nil
}

// ListByOwner returns every file owned by userID, in no particular order.
func (r *PostgresRepository) ListByOwner(ctx context.Context, userID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", dbx.Classify(err))
	}
	defer rows.Close()

	result := []*models.File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Insert persists a new file and refreshes the generated id and created_at.
// A path already taken by a file or a directory yields common.ErrAlreadyExists.
func (r *PostgresRepository) Insert(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, name, path, size, is_downloadable)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.Name, file.Path, file.Size, file.IsDownloadable).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return file, nil
}

// Update persists the mutable fields of an existing file (size, timestamp,
// downloadable flag). Owner and path are never rewritten.
func (r *PostgresRepository) Update(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		UPDATE files SET size = $2, created_at = $3, is_downloadable = $4
		WHERE id = $1
		RETURNING ` + fileColumns

	f, err := scanFile(r.db.QueryRowContext(ctx, query,
		file.ID, file.Size, file.CreatedAt, file.IsDownloadable))
	if err != nil {
		return nil, dbx.Classify(err)
	}
	return f, nil
}

// HealthCheck runs a trivial read against the files table. Any failure,
// whatever its cause, is reported as unavailable.
func (r *PostgresRepository) HealthCheck(ctx context.Context) bool {
	_, err := r.db.ExecContext(ctx, `SELECT 1 FROM files LIMIT 1`)
	return err == nil
}
