// Package store keeps the discovery history and cached lookups in SQLite.
package store

import (
	"context"

	"knowthepast/pkg/model"
)

// PlaceStore keeps the discovery history.
type PlaceStore interface {
	SavePlace(ctx context.Context, p *model.Place) error
	GetPlace(ctx context.Context, id string) (*model.Place, error)
	RecentPlaces(ctx context.Context, limit int) ([]model.Place, error)
}

// CacheStore handles generic key-value caching.
type CacheStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	HasCache(ctx context.Context, key string) (bool, error)
	SetCache(ctx context.Context, key string, val []byte) error
}
