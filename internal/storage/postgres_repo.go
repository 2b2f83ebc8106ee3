package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	agent_uri TEXT UNIQUE NOT NULL,
	name TEXT NOT NULL,
	base_model_uri TEXT NOT NULL,
	system_prompt TEXT NOT NULL DEFAULT '',
	rag_asset_ids TEXT NOT NULL DEFAULT '[]',
	function_asset_ids TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS functions (
	id TEXT PRIMARY KEY,
	uri TEXT NOT NULL,
	name TEXT NOT NULL,
	functions_path TEXT NOT NULL,
	functions_name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS assets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	vs_provider TEXT NOT NULL,
	basemodel_uri TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_history (
	seq BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	agent_uri TEXT NOT NULL,
	payload BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(session_id);
`

// postgresRepository implements Repository over a pgx connection pool.
type postgresRepository struct {
	pool    *pgxpool.Pool
	backing Storage
}

func newPostgresRepository(ctx context.Context, pool *pgxpool.Pool, backing Storage) (Repository, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		_ = backing.Close()
		return nil, fmt.Errorf("failed to initialize PostgreSQL schema: %w", err)
	}
	return &postgresRepository{pool: pool, backing: backing}, nil
}

func (r *postgresRepository) Close() error {
	return r.backing.Close()
}

const pgAgentColumns = "id, agent_uri, name, base_model_uri, system_prompt, rag_asset_ids, function_asset_ids"

func (r *postgresRepository) getAgentWhere(ctx context.Context, where, arg string, notFound *core.GatewayError) (*core.AgentDescriptor, error) {
	var a core.AgentDescriptor
	var ragIDs, fnIDs string
	err := r.pool.QueryRow(ctx, "SELECT "+pgAgentColumns+" FROM agents WHERE "+where+" = $1", arg).
		Scan(&a.ID, &a.AgentURI, &a.Name, &a.BaseModelURI, &a.SystemPrompt, &ragIDs, &fnIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read agent: %w", err)
	}
	a.RagAssetIDs = unmarshalIDs(ragIDs)
	a.FunctionAssetIDs = unmarshalIDs(fnIDs)
	return &a, nil
}

func (r *postgresRepository) GetAgent(ctx context.Context, id string) (*core.AgentDescriptor, error) {
	return r.getAgentWhere(ctx, "id", id, core.NewAgentNotFoundError(id))
}

func (r *postgresRepository) GetAgentByURI(ctx context.Context, agentURI string) (*core.AgentDescriptor, error) {
	return r.getAgentWhere(ctx, "agent_uri", agentURI, core.NewAgentNotFoundError(agentURI))
}

func (r *postgresRepository) ListAgents(ctx context.Context) ([]core.AgentDescriptor, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+pgAgentColumns+" FROM agents ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	agents := []core.AgentDescriptor{}
	for rows.Next() {
		var a core.AgentDescriptor
		var ragIDs, fnIDs string
		if err := rows.Scan(&a.ID, &a.AgentURI, &a.Name, &a.BaseModelURI, &a.SystemPrompt, &ragIDs, &fnIDs); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		a.RagAssetIDs = unmarshalIDs(ragIDs)
		a.FunctionAssetIDs = unmarshalIDs(fnIDs)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (r *postgresRepository) SaveAgent(ctx context.Context, agent *core.AgentDescriptor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agents (`+pgAgentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			agent_uri = EXCLUDED.agent_uri,
			name = EXCLUDED.name,
			base_model_uri = EXCLUDED.base_model_uri,
			system_prompt = EXCLUDED.system_prompt,
			rag_asset_ids = EXCLUDED.rag_asset_ids,
			function_asset_ids = EXCLUDED.function_asset_ids`,
		agent.ID, agent.AgentURI, agent.Name, agent.BaseModelURI, agent.SystemPrompt,
		marshalIDs(agent.RagAssetIDs), marshalIDs(agent.FunctionAssetIDs))
	if err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateAgent(ctx context.Context, id string, update core.AgentUpdate) (*core.AgentDescriptor, error) {
	agent, err := r.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	applyAgentUpdate(agent, update)
	if err := r.SaveAgent(ctx, agent); err != nil {
		return nil, err
	}
	return agent, nil
}

func (r *postgresRepository) DeleteAgent(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM agents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewAgentNotFoundError(id)
	}
	return nil
}

func (r *postgresRepository) GetFunction(ctx context.Context, id string) (*core.FunctionAsset, error) {
	var f core.FunctionAsset
	err := r.pool.QueryRow(ctx,
		"SELECT id, uri, name, functions_path, functions_name FROM functions WHERE id = $1", id).
		Scan(&f.ID, &f.URI, &f.Name, &f.Path, &f.FuncName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NewFunctionNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read function: %w", err)
	}
	return &f, nil
}

func (r *postgresRepository) ListFunctions(ctx context.Context) ([]core.FunctionAsset, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, uri, name, functions_path, functions_name FROM functions ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer rows.Close()

	fns := []core.FunctionAsset{}
	for rows.Next() {
		var f core.FunctionAsset
		if err := rows.Scan(&f.ID, &f.URI, &f.Name, &f.Path, &f.FuncName); err != nil {
			return nil, fmt.Errorf("failed to scan function: %w", err)
		}
		fns = append(fns, f)
	}
	return fns, rows.Err()
}

func (r *postgresRepository) SaveFunction(ctx context.Context, fn *core.FunctionAsset) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO functions (id, uri, name, functions_path, functions_name) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			uri = EXCLUDED.uri,
			name = EXCLUDED.name,
			functions_path = EXCLUDED.functions_path,
			functions_name = EXCLUDED.functions_name`,
		fn.ID, fn.URI, fn.Name, fn.Path, fn.FuncName)
	if err != nil {
		return fmt.Errorf("failed to save function: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteFunction(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM functions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete function: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewFunctionNotFoundError(id)
	}
	return nil
}

func (r *postgresRepository) GetAssetMetadata(ctx context.Context, id string) (*core.AssetMetadata, error) {
	var m core.AssetMetadata
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, vs_provider, basemodel_uri FROM assets WHERE id = $1", id).
		Scan(&m.ID, &m.Name, &m.VectorStoreProvider, &m.BasemodelURI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.NewAssetNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset metadata: %w", err)
	}
	return &m, nil
}

func (r *postgresRepository) ListAssetMetadata(ctx context.Context) ([]core.AssetMetadata, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, vs_provider, basemodel_uri FROM assets ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list asset metadata: %w", err)
	}
	defer rows.Close()

	assets := []core.AssetMetadata{}
	for rows.Next() {
		var m core.AssetMetadata
		if err := rows.Scan(&m.ID, &m.Name, &m.VectorStoreProvider, &m.BasemodelURI); err != nil {
			return nil, fmt.Errorf("failed to scan asset metadata: %w", err)
		}
		assets = append(assets, m)
	}
	return assets, rows.Err()
}

func (r *postgresRepository) SaveAssetMetadata(ctx context.Context, meta *core.AssetMetadata) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assets (id, name, vs_provider, basemodel_uri) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			vs_provider = EXCLUDED.vs_provider,
			basemodel_uri = EXCLUDED.basemodel_uri`,
		meta.ID, meta.Name, meta.VectorStoreProvider, meta.BasemodelURI)
	if err != nil {
		return fmt.Errorf("failed to save asset metadata: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteAssetMetadata(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM assets WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete asset metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.NewAssetNotFoundError(id)
	}
	return nil
}

func (r *postgresRepository) AppendMessage(ctx context.Context, sessionID, agentURI string, msg core.ChatTurnMessage) error {
	payload, err := encodeTurnMessage(msg)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		"INSERT INTO chat_history (session_id, agent_uri, payload) VALUES ($1, $2, $3)",
		sessionID, agentURI, payload)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetHistory(ctx context.Context, sessionID string) ([]core.ChatTurnMessage, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT payload FROM chat_history WHERE session_id = $1 ORDER BY seq", sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	history := []core.ChatTurnMessage{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		msg, err := decodeTurnMessage(payload)
		if err != nil {
			return nil, err
		}
		history = append(history, msg)
	}
	return history, rows.Err()
}

func (r *postgresRepository) DeleteHistory(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM chat_history WHERE session_id = $1", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}
