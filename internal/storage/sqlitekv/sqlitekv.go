// Package sqlitekv keeps the store records in a single-file sqlite database,
// the on-disk counterpart of a browser's local storage.
package sqlitekv

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS kv_records (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init schema")
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_records WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "select record")
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_records (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`, key, value)
	return errors.Wrap(err, "upsert record")
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_records WHERE key = ?`, key)
	return errors.Wrap(err, "delete record")
}

func (s *Store) Close() error {
	return s.db.Close()
}
