package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"

	"github.com/iliyamo/user-service/internal/apperr"
	"github.com/iliyamo/user-service/internal/config"
)

func TestDSN_MySQLFromParts(t *testing.T) {
	dsn, err := DSN(config.DBConfig{Driver: "mysql", User: "app", Pass: "pw", Host: "db", Name: "users"})
	if err != nil {
		t.Fatalf("DSN error: %v", err)
	}
	for _, want := range []string{"app:pw@tcp(db:3306)/users", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("expected %q in %q", want, dsn)
		}
	}
}

func TestDSN_PostgresFromParts(t *testing.T) {
	dsn, err := DSN(config.DBConfig{Driver: "postgres", User: "app", Host: "db", Port: "6543", Name: "users"})
	if err != nil {
		t.Fatalf("DSN error: %v", err)
	}
	if dsn != "postgres://app@db:6543/users?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestDSN_ExplicitWins(t *testing.T) {
	dsn, err := DSN(config.DBConfig{Driver: "mysql", DSN: "u@tcp(x)/y", User: "ignored"})
	if err != nil || dsn != "u@tcp(x)/y" {
		t.Fatalf("got %q, %v", dsn, err)
	}
}

func TestDSN_Missing(t *testing.T) {
	_, err := DSN(config.DBConfig{Driver: "mysql"})
	if !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDriverName(t *testing.T) {
	if DriverName("postgres") != "pgx" || DriverName("mysql") != "mysql" {
		t.Fatal("unexpected driver mapping")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres"} {
		entries, err := fs.ReadDir(migrationsFS, MigrationsDir(driver))
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		if len(entries) != 2 {
			t.Fatalf("%s: expected 2 migrations, got %d", driver, len(entries))
		}
		body, err := fs.ReadFile(migrationsFS, MigrationsDir(driver)+"/"+entries[1].Name())
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		for _, proc := range []string{"sp_Login", "sp_Register", "sp_ChangePassword", "sp_DeleteUser", "sp_UpdateUser", "sp_GetAllUsers", "sp_GetUserById"} {
			if !strings.Contains(string(body), proc) {
				t.Fatalf("%s: %s missing from %s", driver, proc, entries[1].Name())
			}
		}
	}
}

func TestMigrate_UsesDriverDir(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	if err := Migrate(context.Background(), db, "postgres"); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if gotDir != "migrations/postgres" {
		t.Fatalf("unexpected dir %q", gotDir)
	}
}

func TestMigrate_PropagatesError(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	if err := Migrate(context.Background(), db, "mysql"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}
