package rediskv

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Store keeps every record as a plain redis string without expiry.
type Store struct {
	c      *redis.Client
	prefix string
}

func New(c *redis.Client, prefix string) *Store {
	return &Store{c: c, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.c.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.c.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.c.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}

func (s *Store) Close() error {
	return s.c.Close()
}
