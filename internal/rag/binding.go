package rag

import (
	"context"
	"strings"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// DefaultTopK is the number of passages retrieved per context slot.
const DefaultTopK = 4

// Binding ties an agent's retrieval assets to numbered context slots.
// Slot i of the prompt is filled from retriever i.
type Binding struct {
	retrievers []core.Retriever
	topK       int
}

// NewBinding builds a binding over the given retrievers. topK <= 0 uses
// DefaultTopK.
func NewBinding(retrievers []core.Retriever, topK int) *Binding {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Binding{retrievers: retrievers, topK: topK}
}

// Slots returns the number of context slots this binding fills.
func (b *Binding) Slots() int {
	if b == nil {
		return 0
	}
	return len(b.retrievers)
}

// Resolve retrieves the passages for every slot against the user's input
// and returns slot index to joined content. Retrieval runs before the
// model call; a failing retriever fails the whole turn.
func (b *Binding) Resolve(ctx context.Context, query string) (map[int]string, error) {
	if b.Slots() == 0 {
		return nil, nil
	}
	values := make(map[int]string, len(b.retrievers))
	for i, r := range b.retrievers {
		docs, err := r.Retrieve(ctx, query, b.topK)
		if err != nil {
			return nil, err
		}
		contents := make([]string, 0, len(docs))
		for _, d := range docs {
			contents = append(contents, d.Content)
		}
		values[i] = strings.Join(contents, "\n")
	}
	return values, nil
}
