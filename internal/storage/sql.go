package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	_createKVTable = `CREATE TABLE IF NOT EXISTS kv_store (
							key   TEXT PRIMARY KEY,
							value TEXT NOT NULL
						)`
	_queryKV  = "SELECT value FROM kv_store WHERE key = ?"
	_upsertKV = `INSERT INTO kv_store (key, value) VALUES (?, ?)
						ON CONFLICT (key)
						DO UPDATE SET value = EXCLUDED.value`
)

// SQLStorage keeps values in a single kv_store table. Works with any sqlx
// driver that understands ON CONFLICT upserts (postgres, sqlite).
type SQLStorage struct {
	db *sqlx.DB
}

func NewSQLStorage(ctx context.Context, db *sqlx.DB) (*SQLStorage, error) {
	if _, err := db.ExecContext(ctx, _createKVTable); err != nil {
		return nil, fmt.Errorf("%w: can't create kv table", err)
	}
	return &SQLStorage{db: db}, nil
}

func (s *SQLStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	if err := s.db.GetContext(ctx, &value, s.db.Rebind(_queryKV), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: can't query key %s", err, key)
	}
	return []byte(value), nil
}

func (s *SQLStorage) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(_upsertKV), key, string(value)); err != nil {
		return fmt.Errorf("%w: can't upsert key %s", err, key)
	}
	return nil
}
