package dbx

import (
	"fmt"
	"strings"
)

// Dialect selects placeholder style, driver and migration set.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "pgx"
}

// GooseDialect returns the goose dialect name.
func (d Dialect) GooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "pgx"
}

// Rebind rewrites $N placeholders into ? for SQLite. Queries are written
// once in postgres style and rebound per dialect. Placeholders must appear
// in ascending order.
func (d Dialect) Rebind(query string) string {
	if d != SQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ParseDSN picks the dialect from the DSN scheme and returns the DSN the
// driver expects. "sqlite://path" and "file:" DSNs select SQLite, anything
// else is handed to pgx.
func ParseDSN(dsn string) (Dialect, string, error) {
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("empty database DSN")
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return SQLite, dsn, nil
	default:
		return Postgres, dsn, nil
	}
}
