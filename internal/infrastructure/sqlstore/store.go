// Package sqlstore persists cart snapshots in a single SQL table, on SQLite or Postgres.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	domcart "github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

const (
	defaultSQLitePath  = "minishop-cart.db"
	defaultPostgresDSN = "postgres://localhost/minishop?sslmode=disable"
)

// Store keeps one row per storage key holding the JSON snapshot.
type Store struct {
	db      *sql.DB
	dialect Dialect
	key     string
}

var _ domcart.Snapshots = (*Store)(nil)

// Open connects to the database, pings it and ensures the snapshot table exists.
func Open(ctx context.Context, dialect Dialect, dsn, key string) (*Store, error) {
	var driver string
	switch dialect {
	case SQLite:
		driver = "sqlite"
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("sqlstore: create dirs: %w", err)
			}
		}
	case Postgres:
		driver = "pgx"
		if dsn == "" {
			dsn = defaultPostgresDSN
		}
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// one writer keeps sqlite from reporting SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", dialect, err)
	}
	s, err := New(ctx, db, dialect, key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database.
func New(ctx context.Context, db *sql.DB, dialect Dialect, key string) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: db is required")
	}
	if key == "" {
		key = domcart.DefaultStorageKey
	}
	s := &Store{db: db, dialect: dialect, key: key}
	if err := s.ensureTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureTable(ctx context.Context) error {
	payloadType := "TEXT"
	if s.dialect == Postgres {
		payloadType = "JSONB"
	}
	stmt := `CREATE TABLE IF NOT EXISTS cart_snapshots (
		storage_key TEXT PRIMARY KEY,
		payload ` + payloadType + ` NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlstore: create cart_snapshots: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domcart.Cart, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cart_snapshots WHERE storage_key = `+s.placeholder(1), s.key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domcart.Cart{}, domcart.ErrSnapshotNotFound
	}
	if err != nil {
		return domcart.Cart{}, fmt.Errorf("sqlstore: select snapshot: %w", err)
	}
	return domcart.DecodeSnapshot([]byte(payload))
}

func (s *Store) Save(ctx context.Context, c domcart.Cart) error {
	raw, err := domcart.EncodeSnapshot(c)
	if err != nil {
		return err
	}
	stmt := `INSERT INTO cart_snapshots (storage_key, payload, updated_at)
		VALUES (` + s.placeholder(1) + `, ` + s.placeholder(2) + `, CURRENT_TIMESTAMP)
		ON CONFLICT (storage_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, stmt, s.key, string(raw)); err != nil {
		return fmt.Errorf("sqlstore: upsert snapshot: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) placeholder(n int) string {
	if s.dialect == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
