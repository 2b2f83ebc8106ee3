// Package cache provides a cache abstraction for the aggregated model
// catalog. Supports both local file and Redis backends for multi-instance
// deployments.
package cache

import (
	"context"
	"time"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// CatalogSnapshot is the cached form of the aggregated model catalog.
type CatalogSnapshot struct {
	Version   int                 `json:"version"`
	UpdatedAt time.Time           `json:"updated_at"`
	Entries   []core.CatalogEntry `json:"entries"`
}

// Cache defines the interface for catalog snapshot storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the catalog snapshot.
	// Returns nil, nil if no snapshot exists yet.
	Get(ctx context.Context) (*CatalogSnapshot, error)

	// Set stores the catalog snapshot.
	Set(ctx context.Context, snapshot *CatalogSnapshot) error

	// Close releases any resources held by the cache.
	Close() error
}
