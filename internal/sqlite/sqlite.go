package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const InMemory = ":memory:"

// NewDB opens a sqlite database at path. The connection pool is pinned to a
// single connection: sqlite serializes writers anyway and an in-memory
// database only exists inside its connection.
func NewDB(ctx context.Context, path string) (*sqlx.DB, error) {
	if path != InMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: can't create database dir", err)
		}
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: can't open sqlite database", err)
	}
	db.SetMaxOpenConns(1)

	if path != InMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: can't set wal mode", err)
		}
	}
	return db, nil
}
