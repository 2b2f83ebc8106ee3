// Package assets manages the lifecycle of embedding assets: creating a
// vector index from document text, growing it and tearing it down.
package assets

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
	"github.com/YusakuNo1/AiFoundry/internal/rag"
	"github.com/YusakuNo1/AiFoundry/internal/rag/vectorstore"
)

// Manager owns embedding assets end to end: metadata rows in the asset
// store and index files under baseDir.
type Manager struct {
	store    core.AssetStore
	registry *providers.Registry
	baseDir  string
	chunker  rag.ChunkerConfig
}

// NewManager creates a manager writing index files under baseDir.
func NewManager(store core.AssetStore, registry *providers.Registry, baseDir string) *Manager {
	return &Manager{
		store:    store,
		registry: registry,
		baseDir:  baseDir,
		chunker:  rag.DefaultChunkerConfig(),
	}
}

// CreateRequest describes a new embedding asset. Contents holds the raw
// text of each uploaded document.
type CreateRequest struct {
	Name                string   `json:"name"`
	BasemodelURI        string   `json:"basemodel_uri"`
	VectorStoreProvider string   `json:"vs_provider"`
	Contents            []string `json:"contents"`
}

func (m *Manager) embedder(ctx context.Context, basemodelURI string) (core.EmbeddingModel, error) {
	provider, uri, err := m.registry.Resolve(basemodelURI)
	if err != nil {
		return nil, err
	}
	return provider.EmbeddingModel(ctx, uri)
}

// chunkAll splits every document into embedding-sized chunks.
func (m *Manager) chunkAll(contents []string) []string {
	var chunks []string
	for _, content := range contents {
		chunks = append(chunks, rag.ChunkText(content, m.chunker)...)
	}
	return chunks
}

// Create chunks and embeds the documents, materializes the index and then
// persists the metadata record. Metadata is written last so a failed
// indexing run never leaves a dangling record.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*core.AssetMetadata, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, core.NewValidationError("asset name must not be empty", nil)
	}
	if req.BasemodelURI == "" {
		return nil, core.NewValidationError("asset basemodel_uri must not be empty", nil)
	}
	backend := req.VectorStoreProvider
	if backend == "" {
		backend = vectorstore.BackendSQLiteVec
	}
	if backend != vectorstore.BackendSQLiteVec {
		return nil, core.NewUnsupportedBackendError(backend)
	}

	chunks := m.chunkAll(req.Contents)
	if len(chunks) == 0 {
		return nil, core.NewValidationError("asset has no content to index", nil)
	}

	embedder, err := m.embedder(ctx, req.BasemodelURI)
	if err != nil {
		return nil, err
	}
	vectors, err := embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, core.NewProviderError("", "embedding model returned no vectors", nil)
	}

	metadata := &core.AssetMetadata{
		ID:                  uuid.NewString(),
		Name:                req.Name,
		VectorStoreProvider: backend,
		BasemodelURI:        req.BasemodelURI,
	}

	store, err := vectorstore.Open(backend, m.baseDir, metadata.ID, len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := store.Add(ctx, chunks, vectors); err != nil {
		_ = store.Close()
		_ = vectorstore.DeleteIndex(backend, m.baseDir, metadata.ID)
		return nil, err
	}
	if err := store.Close(); err != nil {
		return nil, err
	}

	if err := m.store.SaveAssetMetadata(ctx, metadata); err != nil {
		_ = vectorstore.DeleteIndex(backend, m.baseDir, metadata.ID)
		return nil, err
	}

	slog.Info("embedding asset created",
		"asset", metadata.ID, "name", metadata.Name, "chunks", len(chunks))
	return metadata, nil
}

// UpdateRequest carries the optional changes of an asset update. A new
// name touches metadata only; new contents are appended to the index.
type UpdateRequest struct {
	Name     string   `json:"name"`
	Contents []string `json:"contents"`
}

// Update applies an asset update. Additional documents are embedded with
// the asset's original embedding model and appended to the existing index.
func (m *Manager) Update(ctx context.Context, id string, req UpdateRequest) (*core.AssetMetadata, error) {
	metadata, err := m.store.GetAssetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name == "" && len(req.Contents) == 0 {
		return nil, core.NewValidationError("asset update needs a name or contents", nil)
	}

	indexed := 0
	if len(req.Contents) > 0 {
		chunks := m.chunkAll(req.Contents)
		if len(chunks) == 0 {
			return nil, core.NewValidationError("asset update has no content to index", nil)
		}

		embedder, err := m.embedder(ctx, metadata.BasemodelURI)
		if err != nil {
			return nil, err
		}
		vectors, err := embedder.EmbedDocuments(ctx, chunks)
		if err != nil {
			return nil, err
		}

		store, err := vectorstore.OpenExisting(metadata.VectorStoreProvider, m.baseDir, metadata.ID)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = store.Close()
		}()
		if err := store.Add(ctx, chunks, vectors); err != nil {
			return nil, err
		}
		indexed = len(chunks)
	}

	if req.Name != "" && req.Name != metadata.Name {
		metadata.Name = req.Name
		if err := m.store.SaveAssetMetadata(ctx, metadata); err != nil {
			return nil, err
		}
	}

	slog.Info("embedding asset updated",
		"asset", metadata.ID, "name", metadata.Name, "chunks", indexed)
	return metadata, nil
}

// Delete removes the index file first and the metadata record second, so
// an interrupted delete leaves a record pointing at a missing index
// rather than an orphaned index file. Deleting twice is asset-not-found.
func (m *Manager) Delete(ctx context.Context, id string) error {
	metadata, err := m.store.GetAssetMetadata(ctx, id)
	if err != nil {
		return err
	}
	if err := vectorstore.DeleteIndex(metadata.VectorStoreProvider, m.baseDir, metadata.ID); err != nil {
		return err
	}
	if err := m.store.DeleteAssetMetadata(ctx, id); err != nil {
		return err
	}
	slog.Info("embedding asset deleted", "asset", id)
	return nil
}

// Get returns the metadata record of one asset.
func (m *Manager) Get(ctx context.Context, id string) (*core.AssetMetadata, error) {
	return m.store.GetAssetMetadata(ctx, id)
}

// List returns all asset metadata records.
func (m *Manager) List(ctx context.Context) ([]core.AssetMetadata, error) {
	return m.store.ListAssetMetadata(ctx)
}

// Retriever opens a similarity retriever over one asset, embedding
// queries with the model the index was built with. The caller owns
// closing it.
func (m *Manager) Retriever(ctx context.Context, id string) (*rag.VectorRetriever, error) {
	metadata, err := m.store.GetAssetMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	embedder, err := m.embedder(ctx, metadata.BasemodelURI)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.OpenExisting(metadata.VectorStoreProvider, m.baseDir, metadata.ID)
	if err != nil {
		return nil, err
	}
	return rag.NewVectorRetriever(embedder, store), nil
}
