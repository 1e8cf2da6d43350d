package pgkv

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value::text FROM kv_records WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "select record")
	}
	return value, true, nil
}

// Put replaces the whole value of key.
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO kv_records (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = now()
`, key, string(value))
	return errors.Wrap(err, "upsert record")
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM kv_records WHERE key = $1`, key)
	return errors.Wrap(err, "delete record")
}
