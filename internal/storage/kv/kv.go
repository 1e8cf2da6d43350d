// Package kv defines the whole-value key-value contract behind the persistent store.
// Every record is read and written as one serialized value; there are no partial updates.
package kv

import "context"

type Store interface {
	// Get returns ok=false when the key was never written or has been deleted.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
