package rag

import (
	"context"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/rag/vectorstore"
)

// VectorRetriever answers similarity queries over one vector index by
// embedding the query with the same model the index was built with.
type VectorRetriever struct {
	embedder core.EmbeddingModel
	store    vectorstore.Store
}

func NewVectorRetriever(embedder core.EmbeddingModel, store vectorstore.Store) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, store: store}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]core.Document, error) {
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.store.Search(ctx, vec, k)
}

// Close releases the underlying index handle.
func (r *VectorRetriever) Close() error {
	return r.store.Close()
}
