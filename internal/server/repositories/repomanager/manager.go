// Package repomanager vends repository implementations bound to a *sql.DB or
// *sql.Tx and owns database opening and schema migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/guestkeeper/internal/dbx"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/guesttokens"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	GuestTokens(db dbx.DBTX) guesttokens.Repository
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
