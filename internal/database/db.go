package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/Mzubac125/azure-sql-chatbot/internal/config"
)

const (
	connectTimeoutSeconds = 60
	pingTimeout           = 70 * time.Second
)

// Open resolves the dialect, builds the DSN when none is configured, and
// returns a pinged connection pool.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	dsn, err := BuildDSN(dialect, cfg)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open database: %w", err)
	}
	if dialect.Kind == SQLite {
		// Every sqlite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("ping database: %w", err)
	}

	return db, dialect, nil
}

// BuildDSN returns cfg.DSN when set, otherwise assembles one from the
// server/database/username/password settings.
func BuildDSN(dialect Dialect, cfg config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	switch dialect.Kind {
	case SQLServer:
		q := url.Values{}
		q.Set("database", cfg.Name)
		q.Set("encrypt", "true")
		q.Set("TrustServerCertificate", "true")
		q.Set("connection timeout", fmt.Sprint(connectTimeoutSeconds))
		q.Set("MultipleActiveResultSets", "true")
		q.Set("ApplicationIntent", "ReadWrite")
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     cfg.Server,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case Postgres:
		q := url.Values{}
		q.Set("sslmode", "require")
		q.Set("connect_timeout", fmt.Sprint(connectTimeoutSeconds))
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     cfg.Server,
			Path:     "/" + cfg.Name,
			RawQuery: q.Encode(),
		}
		return u.String(), nil

	case SQLite:
		if cfg.Name == "" {
			return "", fmt.Errorf("sqlite requires DB_DSN or AZURE_SQL_DATABASE as a file path")
		}
		return cfg.Name, nil
	}

	return "", fmt.Errorf("no DSN builder for %s", dialect.Kind)
}
