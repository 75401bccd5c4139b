package files

import (
	"context"

	"github.com/dmitrijs2005/filestore/internal/server/models"
)

// Repository is the catalog contract for file records. Lookups return
// common.ErrorNotFound when nothing matches.
type Repository interface {
	FindByPath(ctx context.Context, path string) (*models.File, error)
	FindByID(ctx context.Context, id string) (*models.File, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.File, error)
	Insert(ctx context.Context, file *models.File) (*models.File, error)
	Update(ctx context.Context, file *models.File) (*models.File, error)
	HealthCheck(ctx context.Context) bool
}
