package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// Repository is the persistence surface of the gateway: agents, function
// assets, embedding asset metadata and per-session chat history.
type Repository interface {
	core.AgentStore
	core.FunctionStore
	core.AssetStore
	core.HistoryStore
	Close() error
}

// NewRepository connects the configured backend and prepares its schema.
func NewRepository(ctx context.Context, cfg Config) (Repository, error) {
	st, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	switch st.Type() {
	case TypeSQLite:
		return newSQLiteRepository(st)
	case TypePostgreSQL:
		return newPostgresRepository(ctx, st.PostgreSQLPool().(*pgxpool.Pool), st)
	case TypeMongoDB:
		return newMongoRepository(st.MongoDatabase().(*mongo.Database), st)
	default:
		_ = st.Close()
		return nil, fmt.Errorf("unknown storage type: %s", st.Type())
	}
}

// applyAgentUpdate copies the non-nil fields of update onto agent.
func applyAgentUpdate(agent *core.AgentDescriptor, update core.AgentUpdate) {
	if update.Name != nil {
		agent.Name = *update.Name
	}
	if update.BaseModelURI != nil {
		agent.BaseModelURI = *update.BaseModelURI
	}
	if update.SystemPrompt != nil {
		agent.SystemPrompt = *update.SystemPrompt
	}
	if update.RagAssetIDs != nil {
		agent.RagAssetIDs = *update.RagAssetIDs
	}
	if update.FunctionAssetIDs != nil {
		agent.FunctionAssetIDs = *update.FunctionAssetIDs
	}
}

// History entries are stored as brotli-compressed JSON payloads. Chat
// transcripts are highly repetitive text, so the compression pays for
// itself on any non-trivial session.

func encodeTurnMessage(msg core.ChatTurnMessage) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history entry: %w", err)
	}
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress history entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress history entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeTurnMessage(payload []byte) (core.ChatTurnMessage, error) {
	var msg core.ChatTurnMessage
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return msg, fmt.Errorf("failed to decompress history entry: %w", err)
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("failed to unmarshal history entry: %w", err)
	}
	return msg, nil
}

func marshalIDs(ids []string) string {
	if ids == nil {
		ids = []string{}
	}
	raw, _ := json.Marshal(ids)
	return string(raw)
}

func unmarshalIDs(raw string) []string {
	var ids []string
	if raw == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return []string{}
	}
	return ids
}
