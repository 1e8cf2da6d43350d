// Package backend opens the kv.Store selected by the storage section of the config.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ShipTrack/config"
	"github.com/BearBump/ShipTrack/internal/storage/kv"
	"github.com/BearBump/ShipTrack/internal/storage/memkv"
	"github.com/BearBump/ShipTrack/internal/storage/mongokv"
	"github.com/BearBump/ShipTrack/internal/storage/pgkv"
	"github.com/BearBump/ShipTrack/internal/storage/rediskv"
	"github.com/BearBump/ShipTrack/internal/storage/sqlitekv"
	"github.com/redis/go-redis/v9"
)

const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
	Redis    = "redis"
	Mongo    = "mongo"
)

// postgres may still be starting when the service comes up
var postgresWait = 60 * time.Second

func Open(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	name := cfg.Storage.Backend
	if name == "" {
		name = SQLite
	}
	slog.Info("opening store", "backend", name)

	switch name {
	case Memory:
		return memkv.New(), nil
	case SQLite:
		path := cfg.SQLite.Path
		if path == "" {
			path = "shiptrack.db"
		}
		return sqlitekv.Open(ctx, path)
	case Postgres:
		return openPostgresWithRetry(ctx, cfg.PostgresConnString(), postgresWait)
	case Redis:
		prefix := cfg.Storage.RedisPrefix
		if prefix == "" {
			prefix = "kv:"
		}
		c := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("redis is not reachable: %w", err)
		}
		return rediskv.New(c, prefix), nil
	case Mongo:
		db := cfg.Mongo.Database
		if db == "" {
			db = "shiptrack"
		}
		return mongokv.Connect(ctx, cfg.Mongo.URI, db)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
}

func openPostgresWithRetry(ctx context.Context, connString string, wait time.Duration) (*pgkv.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgkv.New(ctx, connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("postgres is not ready after %s: %w", wait, lastErr)
}
