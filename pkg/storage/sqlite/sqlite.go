// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/minutes/pkg/storage/sqldriver"
)

var dialect = sqldriver.Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS segments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			spoken_at DATETIME NOT NULL,
			speaker TEXT,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			summary TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	},
}

// SQLiteDriver implements storage.Driver using SQLite.
type SQLiteDriver struct {
	*sqldriver.Driver
}

// NewSQLiteDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDriver(dbPath string) (*SQLiteDriver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	drv, err := sqldriver.New(context.Background(), db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDriver{Driver: drv}, nil
}
