package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrator builds a migrator over the embedded migration files.
func newMigrator(conn *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("db: load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("db: create migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "main", driver)
}

// MigrateUp applies all pending migrations.
// A database that is already current is not an error.
//
// The migrator takes ownership of the connection and closes it;
// open a fresh connection for queries afterwards.
func MigrateUp(conn *sql.DB) error {
	m, err := newMigrator(conn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db: apply migrations: %w", err)
	}
	return nil
}

// MigrateUpFromPath opens the database at path, applies pending
// migrations and closes the connection again.
func MigrateUpFromPath(path string) error {
	conn, err := OpenWithDefaults(path)
	if err != nil {
		return err
	}
	return MigrateUp(conn)
}

// SchemaVersion returns the current migration version and dirty state.
// Returns version 0 when no migrations have been applied.
//
// The dirty flag indicates a migration failed partway through and
// manual intervention may be required.
func SchemaVersion(conn *sql.DB) (uint, bool, error) {
	m, err := newMigrator(conn)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("db: get schema version: %w", err)
	}
	return version, dirty, nil
}
