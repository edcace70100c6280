package repomanager

import (
	"context"
	"database/sql"

	"github.com/standard/dreamcalendar/internal/dbx"
	"github.com/standard/dreamcalendar/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or transaction
// and owns the schema lifecycle.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
