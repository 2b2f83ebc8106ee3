package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

func TestOpen(t *testing.T) {
	t.Run("UnsupportedBackend", func(t *testing.T) {
		_, err := Open(BackendChroma, t.TempDir(), "asset-1", 3)
		require.Error(t, err)
		assert.True(t, core.IsErrorType(err, core.ErrorTypeUnsupportedBackend))
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		_, err := Open("pinecone", t.TempDir(), "asset-1", 3)
		assert.True(t, core.IsErrorType(err, core.ErrorTypeUnsupportedBackend))
	})
}

func TestSQLiteVecRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(BackendSQLiteVec, dir, "asset-1", 3)
	require.NoError(t, err)
	defer store.Close()

	err = store.Add(ctx,
		[]string{"red", "green", "blue"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	)
	require.NoError(t, err)

	docs, err := store.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "red", docs[0].Content, "nearest neighbor first")

	t.Run("LengthMismatch", func(t *testing.T) {
		err := store.Add(ctx, []string{"one"}, nil)
		assert.Error(t, err)
	})
}

func TestDeleteIndex(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(BackendSQLiteVec, dir, "asset-2", 2)
	require.NoError(t, err)
	require.NoError(t, store.Add(context.Background(), []string{"x"}, [][]float32{{1, 1}}))
	require.NoError(t, store.Close())

	path := filepath.Join(dir, "asset-2.db")
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	require.NoError(t, DeleteIndex(BackendSQLiteVec, dir, "asset-2"))
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// second delete is a no-op
	assert.NoError(t, DeleteIndex(BackendSQLiteVec, dir, "asset-2"))

	assert.True(t, core.IsErrorType(DeleteIndex(BackendChroma, dir, "asset-2"), core.ErrorTypeUnsupportedBackend))
}
