package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and migration set.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string { return string(d) }

// SQLRepository is a KeyValueStore over a single entries table. Queries are
// written with '?' placeholders and rebound for the active driver.
type SQLRepository struct {
	db      *sqlx.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and applies migrations.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository connects to dsn and applies migrations.
func NewPostgresRepository(dsn string) (*SQLRepository, error) {
	return open(Postgres, dsn)
}

func open(dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sqlx.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dialect == SQLite {
		// One writer at a time; avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(2 * time.Hour)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLRepository{db: db, dialect: dialect}, nil
}

func (r *SQLRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value, r.db.Rebind(`SELECT value FROM entries WHERE key = ?`), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get entry %q: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLRepository) Set(ctx context.Context, key, value string) error {
	const query = `INSERT INTO entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set entry %q: %w", key, err)
	}
	slog.DebugContext(ctx, "Entry saved", "dialect", r.dialect, "key", key, "bytes", len(value))
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
