package assets

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
)

// hashEmbedder produces small deterministic vectors so nearest-neighbor
// results are stable without a live model.
type hashEmbedder struct{}

func embed(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{sum, float32(len(text)), 1}
}

func (hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, embed(t))
	}
	return out, nil
}

func (hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embed(text), nil
}

// embedProvider serves the stub embedder under a fixed scheme.
type embedProvider struct{}

func (embedProvider) ID() string                        { return "stub" }
func (embedProvider) Healthy(_ context.Context) bool    { return true }
func (embedProvider) CanHandle(uri string) bool         { return strings.HasPrefix(uri, "stub://") }
func (embedProvider) ListModels(_ core.Capability) []core.CatalogEntry { return nil }

func (embedProvider) ChatModel(_ context.Context, _ core.ModelURI, _ []core.ToolDescriptor) (core.ChatModel, error) {
	return nil, core.NewModelUnavailableError("stub", "chat is not supported")
}

func (embedProvider) EmbeddingModel(_ context.Context, _ core.ModelURI) (core.EmbeddingModel, error) {
	return hashEmbedder{}, nil
}

func (embedProvider) Describe() core.ProviderDescriptor { return core.ProviderDescriptor{ID: "stub"} }

func (embedProvider) ApplyConfiguration(_ core.ProviderConfigUpdate) error { return nil }

// memoryAssetStore is an in-memory core.AssetStore.
type memoryAssetStore struct {
	byID map[string]core.AssetMetadata
}

func newMemoryAssetStore() *memoryAssetStore {
	return &memoryAssetStore{byID: map[string]core.AssetMetadata{}}
}

func (s *memoryAssetStore) GetAssetMetadata(_ context.Context, id string) (*core.AssetMetadata, error) {
	meta, ok := s.byID[id]
	if !ok {
		return nil, core.NewAssetNotFoundError(id)
	}
	return &meta, nil
}

func (s *memoryAssetStore) ListAssetMetadata(_ context.Context) ([]core.AssetMetadata, error) {
	out := make([]core.AssetMetadata, 0, len(s.byID))
	for _, meta := range s.byID {
		out = append(out, meta)
	}
	return out, nil
}

func (s *memoryAssetStore) SaveAssetMetadata(_ context.Context, meta *core.AssetMetadata) error {
	s.byID[meta.ID] = *meta
	return nil
}

func (s *memoryAssetStore) DeleteAssetMetadata(_ context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return core.NewAssetNotFoundError(id)
	}
	delete(s.byID, id)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *memoryAssetStore) {
	t.Helper()
	reg := providers.NewRegistry(nil)
	reg.Register(embedProvider{})
	store := newMemoryAssetStore()
	return NewManager(store, reg, t.TempDir()), store
}

func TestCreateAndRetrieve(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	meta, err := m.Create(ctx, CreateRequest{
		Name:         "kb",
		BasemodelURI: "stub://embedder",
		Contents:     []string{"Cats purr. Dogs bark. Birds sing."},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "sqlitevec", meta.VectorStoreProvider)
	assert.Contains(t, store.byID, meta.ID)

	retriever, err := m.Retriever(ctx, meta.ID)
	require.NoError(t, err)
	defer func() {
		_ = retriever.Close()
	}()

	docs, err := retriever.Retrieve(ctx, "Cats purr. Dogs bark. Birds sing.", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "Cats purr")
}

func TestCreateValidation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Create(ctx, CreateRequest{BasemodelURI: "stub://embedder", Contents: []string{"x"}})
	assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))

	_, err = m.Create(ctx, CreateRequest{Name: "kb", Contents: []string{"x"}})
	assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))

	_, err = m.Create(ctx, CreateRequest{Name: "kb", BasemodelURI: "stub://embedder"})
	assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))
}

func TestCreateRejectsChromaBackend(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create(context.Background(), CreateRequest{
		Name:                "kb",
		BasemodelURI:        "stub://embedder",
		VectorStoreProvider: "chroma",
		Contents:            []string{"text"},
	})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeUnsupportedBackend))
}

func TestUpdateAppendsToIndex(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	meta, err := m.Create(ctx, CreateRequest{
		Name:         "kb",
		BasemodelURI: "stub://embedder",
		Contents:     []string{"Original passage."},
	})
	require.NoError(t, err)

	_, err = m.Update(ctx, meta.ID, UpdateRequest{Contents: []string{"Added passage."}})
	require.NoError(t, err)

	retriever, err := m.Retriever(ctx, meta.ID)
	require.NoError(t, err)
	defer func() {
		_ = retriever.Close()
	}()

	docs, err := retriever.Retrieve(ctx, "Added passage.", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestUpdateUnknownAsset(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Update(context.Background(), "missing", UpdateRequest{Contents: []string{"text"}})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeAssetNotFound))
}

func TestUpdateRenamesWithoutContents(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	meta, err := m.Create(ctx, CreateRequest{
		Name:         "kb",
		BasemodelURI: "stub://embedder",
		Contents:     []string{"Passage."},
	})
	require.NoError(t, err)

	updated, err := m.Update(ctx, meta.ID, UpdateRequest{Name: "knowledge-base"})
	require.NoError(t, err)
	assert.Equal(t, "knowledge-base", updated.Name)

	stored, err := store.GetAssetMetadata(ctx, meta.ID)
	require.NoError(t, err)
	assert.Equal(t, "knowledge-base", stored.Name)
}

func TestUpdateRequiresNameOrContents(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	meta, err := m.Create(ctx, CreateRequest{
		Name:         "kb",
		BasemodelURI: "stub://embedder",
		Contents:     []string{"Passage."},
	})
	require.NoError(t, err)

	_, err = m.Update(ctx, meta.ID, UpdateRequest{})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))
}

func TestDeleteIsTerminal(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	meta, err := m.Create(ctx, CreateRequest{
		Name:         "kb",
		BasemodelURI: "stub://embedder",
		Contents:     []string{"Passage."},
	})
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, meta.ID))

	// The record and the index are both gone.
	_, err = m.Get(ctx, meta.ID)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeAssetNotFound))
	_, err = m.Retriever(ctx, meta.ID)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeAssetNotFound))

	// A second delete reports asset-not-found instead of succeeding.
	err = m.Delete(ctx, meta.ID)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeAssetNotFound))
}
