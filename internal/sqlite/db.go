package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rcos/rcos-io/internal/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// connParams are appended to every DSN so that each pooled connection
// enforces foreign keys and writes sortable timestamps.
const connParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", withConnParams(dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; ":memory:" databases also exist per
	// connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations applies every embedded migration that has not run yet.
func (db *DB) RunMigrations() error {
	if err := applyMigrations(db.DB, migrations.FS, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func withConnParams(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + connParams
	}
	return dsn + "?" + connParams
}
