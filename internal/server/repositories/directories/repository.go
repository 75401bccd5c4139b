package directories

import (
	"context"

	"github.com/dmitrijs2005/filestore/internal/server/models"
)

// Repository is the catalog contract for directory records. Directories
// are never updated, so there is no Update.
type Repository interface {
	FindByPath(ctx context.Context, path string) (*models.Directory, error)
	FindByID(ctx context.Context, id string) (*models.Directory, error)
	Insert(ctx context.Context, dir *models.Directory) (*models.Directory, error)
}
