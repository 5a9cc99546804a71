package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	driverSQLite = "sqlite"
	driverLibSQL = "libsql"
)

var remotePrefixes = []string{"libsql://", "wss://", "ws://", "https://", "http://"}

// DriverName returns the database/sql driver for dsn: libsql for remote
// libSQL servers, sqlite for local files and in-memory databases.
func DriverName(dsn string) string {
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(dsn, prefix) {
			return driverLibSQL
		}
	}

	return driverSQLite
}

func New(ctx context.Context, dsn string) (*sqlx.DB, error) {
	const op = "sqlite.New"

	driver := DriverName(dsn)

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to %s database: %w", op, driver, err)
	}

	// SQLite allows a single writer, and every connection to :memory: is a
	// separate database.
	if driver == driverSQLite {
		db.SetMaxOpenConns(1)
	}

	return db, nil
}
