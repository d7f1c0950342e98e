// Package storage persists listing records and writes normalized tables.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/carharvest/internal/config"
	"github.com/IshaanNene/carharvest/internal/types"
)

// RecordStore is a keyed document collection of listings. The key is the
// listing URL.
type RecordStore interface {
	// FindOne returns the listing stored under url, or nil when absent.
	FindOne(ctx context.Context, url string) (*types.Listing, error)

	// Upsert creates or replaces the listing stored under its URL.
	Upsert(ctx context.Context, listing *types.Listing) error

	// All returns a snapshot of every stored listing.
	All(ctx context.Context) ([]*types.Listing, error)

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New opens the record store selected by cfg.Storage.Type.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (RecordStore, error) {
	switch cfg.Storage.Type {
	case "mongo":
		return NewMongoStore(ctx, &cfg.Storage, cfg.CollectionName(), logger)
	case "postgres":
		return NewPostgresStore(ctx, &cfg.Storage, cfg.CollectionName(), logger)
	case "memory":
		return NewMemoryStore(logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
