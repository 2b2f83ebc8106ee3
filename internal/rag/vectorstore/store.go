// Package vectorstore persists embedding vectors in per-asset index files
// and serves nearest-neighbor queries over them.
package vectorstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// Supported backend names. A chroma backend is declared for forward
// compatibility but has no implementation.
const (
	BackendSQLiteVec = "sqlitevec"
	BackendChroma    = "chroma"
)

// Store is one open vector index.
type Store interface {
	// Add inserts documents with their embedding vectors. contents and
	// embeddings are parallel slices.
	Add(ctx context.Context, contents []string, embeddings [][]float32) error

	// Search returns the k documents nearest to the query vector, best
	// match first.
	Search(ctx context.Context, embedding []float32, k int) ([]core.Document, error)

	Close() error
}

// Open opens (creating if needed) the index of an asset under baseDir.
// dimensions fixes the vector width of a new index.
func Open(backend, baseDir, assetID string, dimensions int) (Store, error) {
	switch backend {
	case BackendSQLiteVec:
		return openSQLiteVec(indexPath(baseDir, assetID), dimensions)
	default:
		return nil, core.NewUnsupportedBackendError(backend)
	}
}

// OpenExisting opens the index of an asset that was already materialized.
// A missing index file is an asset-not-found condition.
func OpenExisting(backend, baseDir, assetID string) (Store, error) {
	switch backend {
	case BackendSQLiteVec:
		path := indexPath(baseDir, assetID)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, core.NewAssetNotFoundError(assetID)
		}
		return openSQLiteVecExisting(path)
	default:
		return nil, core.NewUnsupportedBackendError(backend)
	}
}

// DeleteIndex removes the index file of an asset. Deleting an index that
// was never materialized is not an error.
func DeleteIndex(backend, baseDir, assetID string) error {
	switch backend {
	case BackendSQLiteVec:
		err := os.Remove(indexPath(baseDir, assetID))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	default:
		return core.NewUnsupportedBackendError(backend)
	}
}

func indexPath(baseDir, assetID string) string {
	return filepath.Join(baseDir, assetID+".db")
}
