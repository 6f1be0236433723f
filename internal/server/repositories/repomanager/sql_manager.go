package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/guestkeeper/internal/dbx"
	"github.com/dmitrijs2005/guestkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/guesttokens"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/guestkeeper/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLRepositoryManager vends SQL-backed repositories for one dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

// NewSQLRepositoryManager constructs a RepositoryManager for dialect.
func NewSQLRepositoryManager(dialect dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

func (m *SQLRepositoryManager) GuestTokens(db dbx.DBTX) guesttokens.Repository {
	return guesttokens.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db, m.dialect)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations of the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, string(m.dialect)); err != nil {
		return err
	}
	return nil
}

// Open opens the database named by dsn and returns it together with a
// manager for its dialect. SQLite databases get a busy timeout, a text time
// format that sorts and parses back, and a single connection so writers
// serialize inside the process.
func Open(ctx context.Context, dsn string) (*sql.DB, *SQLRepositoryManager, error) {
	dialect, driverDSN, err := dbx.ParseDSN(dsn)
	if err != nil {
		return nil, nil, err
	}
	if dialect == dbx.SQLite {
		driverDSN = sqliteDSN(driverDSN)
	}

	db, err := sql.Open(dialect.DriverName(), driverDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == dbx.SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return db, NewSQLRepositoryManager(dialect), nil
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_time_format=sqlite"
}
