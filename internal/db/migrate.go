package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/maxldruck/printcalc/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// Migrate applies all pending up migrations to the shared database.
// It reports whether anything changed.
func Migrate(cfg config.DatabaseConfig) (bool, error) {
	dir, databaseURL, err := migrationTarget(cfg)
	if err != nil {
		return false, err
	}

	src, err := iofs.New(migrationFiles, dir)
	if err != nil {
		return false, fmt.Errorf("load migrations failed: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return false, fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migrate up failed: %w", err)
	}
	return true, nil
}

func migrationTarget(cfg config.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.Path == "" {
			return "", "", errors.New("DB_PATH is required for sqlite")
		}
		if err := ensureDir(cfg.Path); err != nil {
			return "", "", err
		}
		return "migrations/sqlite", "sqlite://" + cfg.Path, nil
	case DriverPostgres:
		return "migrations/postgres", PostgresURL(cfg), nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
