package repomanager

import (
	"context"
	"database/sql"

	"github.com/sultumov/allergyTracker/internal/dbx"
	"github.com/sultumov/allergyTracker/internal/server/repositories/documents"
	"github.com/sultumov/allergyTracker/internal/server/repositories/refreshtokens"
	"github.com/sultumov/allergyTracker/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Documents(db dbx.DBTX) documents.Repository
}
