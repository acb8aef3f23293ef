package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iliyamo/user-service/internal/apperr"
	"github.com/iliyamo/user-service/internal/config"
)

// DriverName maps a configured DB_DRIVER to the database/sql driver name.
func DriverName(driver string) string {
	if driver == "postgres" {
		return "pgx"
	}
	return "mysql"
}

// DSN builds the connection string from cfg. An explicit DSN is returned
// unchanged.
func DSN(cfg config.DBConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Host == "" || cfg.Name == "" {
		return "", apperr.Configuration("missing database connection settings")
	}

	switch cfg.Driver {
	case "postgres":
		port := cfg.Port
		if port == "" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Pass),
			Host:     net.JoinHostPort(cfg.Host, port),
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		if cfg.Pass == "" {
			u.User = url.User(cfg.User)
		}
		return u.String(), nil
	default:
		port := cfg.Port
		if port == "" {
			port = "3306"
		}
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Pass
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, port)
		mc.DBName = cfg.Name
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	}
}

// Open connects to the configured backend and verifies the connection.
// Connection pooling is left to database/sql; the gateway takes one
// connection per procedure call from this pool.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(DriverName(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	return db, nil
}
