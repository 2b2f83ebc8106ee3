package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	repo, err := NewRepository(context.Background(), Config{
		Type:   TypeSQLite,
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestAgentCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	agent := &core.AgentDescriptor{
		ID:               "a1",
		AgentURI:         core.AgentURI("a1"),
		Name:             "support",
		BaseModelURI:     "openai://gpt-4o-mini",
		SystemPrompt:     "You are helpful.",
		RagAssetIDs:      []string{"asset-1"},
		FunctionAssetIDs: []string{},
	}
	require.NoError(t, repo.SaveAgent(ctx, agent))

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetAgent(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, agent, got)
	})

	t.Run("GetByURI", func(t *testing.T) {
		got, err := repo.GetAgentByURI(ctx, "aif://agents/a1")
		require.NoError(t, err)
		assert.Equal(t, "support", got.Name)
	})

	t.Run("List", func(t *testing.T) {
		agents, err := repo.ListAgents(ctx)
		require.NoError(t, err)
		assert.Len(t, agents, 1)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		name := "billing"
		got, err := repo.UpdateAgent(ctx, "a1", core.AgentUpdate{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "billing", got.Name)
		assert.Equal(t, "You are helpful.", got.SystemPrompt, "untouched fields preserved")
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetAgent(ctx, "missing")
		assert.True(t, core.IsErrorType(err, core.ErrorTypeAgentNotFound))

		_, err = repo.UpdateAgent(ctx, "missing", core.AgentUpdate{})
		assert.True(t, core.IsErrorType(err, core.ErrorTypeAgentNotFound))

		err = repo.DeleteAgent(ctx, "missing")
		assert.True(t, core.IsErrorType(err, core.ErrorTypeAgentNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteAgent(ctx, "a1"))
		_, err := repo.GetAgent(ctx, "a1")
		assert.True(t, core.IsErrorType(err, core.ErrorTypeAgentNotFound))
	})
}

func TestFunctionCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	fn := &core.FunctionAsset{
		ID:       "f1",
		URI:      "aif://function/local/builtin/weather/get_current_weather",
		Name:     "weather",
		Path:     "builtin/weather",
		FuncName: "get_current_weather",
	}
	require.NoError(t, repo.SaveFunction(ctx, fn))

	got, err := repo.GetFunction(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, fn, got)

	fns, err := repo.ListFunctions(ctx)
	require.NoError(t, err)
	assert.Len(t, fns, 1)

	_, err = repo.GetFunction(ctx, "missing")
	assert.True(t, core.IsErrorType(err, core.ErrorTypeFunctionNotFound))

	require.NoError(t, repo.DeleteFunction(ctx, "f1"))
	assert.True(t, core.IsErrorType(repo.DeleteFunction(ctx, "f1"), core.ErrorTypeFunctionNotFound))
}

func TestAssetMetadataCRUD(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	meta := &core.AssetMetadata{
		ID:                  "as1",
		Name:                "handbook",
		VectorStoreProvider: "sqlitevec",
		BasemodelURI:        "ollama://nomic-embed-text",
	}
	require.NoError(t, repo.SaveAssetMetadata(ctx, meta))

	got, err := repo.GetAssetMetadata(ctx, "as1")
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	require.NoError(t, repo.DeleteAssetMetadata(ctx, "as1"))
	assert.True(t, core.IsErrorType(repo.DeleteAssetMetadata(ctx, "as1"), core.ErrorTypeAssetNotFound))
}

func TestHistoryAppendReplay(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	agentURI := core.AgentURI("a1")
	require.NoError(t, repo.AppendMessage(ctx, "s1", agentURI, core.ChatTurnMessage{Role: core.RoleUser, Content: "hi"}))
	require.NoError(t, repo.AppendMessage(ctx, "s1", agentURI, core.ChatTurnMessage{Role: core.RoleAssistant, Content: "hello"}))
	require.NoError(t, repo.AppendMessage(ctx, "s2", agentURI, core.ChatTurnMessage{Role: core.RoleUser, Content: "other session"}))

	history, err := repo.GetHistory(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, "hello", history[1].Content)

	require.NoError(t, repo.DeleteHistory(ctx, "s1"))
	history, err = repo.GetHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	other, err := repo.GetHistory(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, other, 1, "deleting one session leaves others intact")
}

func TestTurnMessageCodec(t *testing.T) {
	msg := core.ChatTurnMessage{
		Role:    core.RoleUser,
		Content: "describe this",
		Attachments: []core.Attachment{
			{FileName: "a.png", MimeType: "image/png", Data: []byte{0x89, 0x50}},
		},
	}
	payload, err := encodeTurnMessage(msg)
	require.NoError(t, err)

	got, err := decodeTurnMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}
