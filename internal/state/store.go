package state

import "context"

// Store is the durable kv surface shared by the last-cycle record and the
// executor's order dedup cache.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
