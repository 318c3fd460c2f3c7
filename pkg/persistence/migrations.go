package persistence

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

//go:embed migrations/0001_init_kernel_snapshot.up.sql
var initSnapshotSQL string

// MigrationSQL returns the schema that creates the snapshot tables, for
// tests that apply it directly against a disposable database rather than
// running it through golang-migrate's file:// source.
func MigrationSQL() (string, error) {
	return initSnapshotSQL, nil
}

// Migrate runs the snapshot schema's pending migrations from migrationsPath
// against db. It is idempotent and safe to call on every boot.
func Migrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsPath), "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
