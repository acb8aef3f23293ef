package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// The migrations create a reference Users table and the seven stored
// procedures the service calls. Production backends may own their own
// versions; these exist so a fresh database is usable end to end.
//
//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// MigrationsDir returns the embedded directory holding driver's migrations.
func MigrationsDir(driver string) string {
	if driver == "postgres" {
		return "migrations/postgres"
	}
	return "migrations/mysql"
}

// Migrate applies all pending migrations for driver.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, MigrationsDir(driver)); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
