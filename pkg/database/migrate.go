package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func prepare() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// MigrateUp applies every pending schema migration.
func MigrateUp(db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return goose.Up(db, migrationsDir)
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return goose.Down(db, migrationsDir)
}

// MigrationStatus prints the applied state of each migration through goose's logger.
func MigrationStatus(db *sql.DB) error {
	if err := prepare(); err != nil {
		return err
	}
	return goose.Status(db, migrationsDir)
}
