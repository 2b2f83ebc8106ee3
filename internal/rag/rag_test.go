package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

func TestChunkText(t *testing.T) {
	cfg := ChunkerConfig{MaxTokens: 20, OverlapTokens: 5}

	t.Run("Empty", func(t *testing.T) {
		assert.Nil(t, ChunkText("", cfg))
		assert.Nil(t, ChunkText("   \n\n  ", cfg))
	})

	t.Run("ShortTextSingleChunk", func(t *testing.T) {
		chunks := ChunkText("One short sentence.", cfg)
		require.Len(t, chunks, 1)
		assert.Equal(t, "One short sentence.", chunks[0])
	})

	t.Run("SentenceAlignedSplit", func(t *testing.T) {
		text := strings.Repeat("This sentence fills a handful of tokens every time. ", 8)
		chunks := ChunkText(text, cfg)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, countTokens(c), cfg.MaxTokens+cfg.OverlapTokens)
			assert.True(t, strings.HasSuffix(c, "."), "chunks end on sentence boundaries: %q", c)
		}
	})

	t.Run("OversizedSentenceSlicedByTokens", func(t *testing.T) {
		text := strings.Repeat("wordwordword ", 60) // one giant "sentence"
		chunks := ChunkText(text, cfg)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, countTokens(c), cfg.MaxTokens)
		}
	})

	t.Run("ParagraphSoftWrap", func(t *testing.T) {
		chunks := ChunkText("line one\nline two.", cfg)
		require.Len(t, chunks, 1)
		assert.Equal(t, "line one line two.", chunks[0])
	})
}

type stubRetriever struct {
	docs []core.Document
	err  error
	got  string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, _ int) ([]core.Document, error) {
	s.got = query
	return s.docs, s.err
}

func TestBindingResolve(t *testing.T) {
	t.Run("NoSlots", func(t *testing.T) {
		values, err := NewBinding(nil, 0).Resolve(context.Background(), "q")
		require.NoError(t, err)
		assert.Nil(t, values)
	})

	t.Run("SlotPerRetriever", func(t *testing.T) {
		r0 := &stubRetriever{docs: []core.Document{{Content: "alpha"}, {Content: "beta"}}}
		r1 := &stubRetriever{docs: []core.Document{{Content: "gamma"}}}
		b := NewBinding([]core.Retriever{r0, r1}, 3)

		assert.Equal(t, 2, b.Slots())
		values, err := b.Resolve(context.Background(), "the question")
		require.NoError(t, err)
		assert.Equal(t, "alpha\nbeta", values[0])
		assert.Equal(t, "gamma", values[1])
		assert.Equal(t, "the question", r0.got)
	})

	t.Run("FailingRetrieverFailsTurn", func(t *testing.T) {
		r := &stubRetriever{err: core.NewAssetNotFoundError("a1")}
		_, err := NewBinding([]core.Retriever{r}, 0).Resolve(context.Background(), "q")
		assert.True(t, core.IsErrorType(err, core.ErrorTypeAssetNotFound))
	})
}
