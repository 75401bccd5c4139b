package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filestore/internal/dbx"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/directories"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/files"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/filestore/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// factories serve both a pool and an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Files(db dbx.DBTX) files.Repository
	Directories(db dbx.DBTX) directories.Repository
}
