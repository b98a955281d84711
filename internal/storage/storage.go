package storage

import (
	"context"

	"lsmkv/internal/config"
	"lsmkv/internal/storage/engine"
)

// Store is the point-lookup surface of the storage engine.
type Store interface {
	Insert(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
	Compact(ctx context.Context) error
	Close() error
}

// Open opens the LSM engine rooted at the configured data directory.
func Open(conf *config.Config) (*engine.Engine, error) {
	return engine.Open(conf)
}

var _ Store = (*engine.Engine)(nil)
