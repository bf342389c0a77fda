package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/trialdraft/internal/dbx"
	"github.com/dmitrijs2005/trialdraft/internal/server/repositories/trials"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Trials(db dbx.DBTX) trials.Repository
}
