// Package storeopen resolves the storage flags shared by commands that read
// or write the segment and summary log.
package storeopen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/minutes/pkg/config"
	"github.com/papercomputeco/minutes/pkg/dotdir"
	"github.com/papercomputeco/minutes/pkg/storage"
	"github.com/papercomputeco/minutes/pkg/storage/inmemory"
	"github.com/papercomputeco/minutes/pkg/storage/postgres"
	"github.com/papercomputeco/minutes/pkg/storage/sqlite"
)

// DefaultSQLiteFile is created inside the .minutes/ directory when the sqlite
// driver is selected without a path.
const DefaultSQLiteFile = "minutes.db"

// Options are the storage settings after flag, env, and config resolution.
type Options struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string

	// ConfigDir overrides .minutes/ discovery for the default SQLite path.
	ConfigDir string
}

// Resolve picks the driver. A SQLite path or Postgres DSN implies its driver
// when the driver is left at memory.
func Resolve(opts Options) (Options, error) {
	opts.Driver = strings.ToLower(strings.TrimSpace(opts.Driver))
	if opts.Driver == "" {
		opts.Driver = config.StorageMemory
	}

	if opts.Driver == config.StorageMemory {
		switch {
		case opts.SQLitePath != "" && opts.PostgresDSN != "":
			return opts, errors.New("both a SQLite path and a Postgres DSN are set; pick one with --storage")
		case opts.SQLitePath != "":
			opts.Driver = config.StorageSQLite
		case opts.PostgresDSN != "":
			opts.Driver = config.StoragePostgres
		}
	}

	switch opts.Driver {
	case config.StorageMemory:
	case config.StorageSQLite:
		if opts.SQLitePath == "" {
			path, err := dotdir.NewManager().File(opts.ConfigDir, DefaultSQLiteFile)
			if err != nil {
				return opts, fmt.Errorf("resolving SQLite path: %w", err)
			}
			opts.SQLitePath = path
		}
	case config.StoragePostgres:
		if opts.PostgresDSN == "" {
			return opts, errors.New("postgres storage requires --postgres")
		}
	default:
		return opts, fmt.Errorf("unknown storage driver %q (expected %s, %s, or %s)",
			opts.Driver, config.StorageMemory, config.StorageSQLite, config.StoragePostgres)
	}

	return opts, nil
}

// Open resolves opts and opens the driver.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (storage.Driver, error) {
	opts, err := Resolve(opts)
	if err != nil {
		return nil, err
	}

	switch opts.Driver {
	case config.StorageSQLite:
		driver, err := sqlite.NewSQLiteDriver(opts.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite storage: %w", err)
		}
		logger.Info("using SQLite storage", "path", opts.SQLitePath)
		return driver, nil

	case config.StoragePostgres:
		driver, err := postgres.NewDriver(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open Postgres storage: %w", err)
		}
		logger.Info("using Postgres storage")
		return driver, nil

	default:
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}
