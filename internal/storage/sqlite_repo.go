package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

const sqliteSchema = `
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
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	agent_uri TEXT NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(session_id);
`

// sqliteRepository implements Repository over a SQLite connection.
type sqliteRepository struct {
	db      *sql.DB
	backing Storage
}

func newSQLiteRepository(backing Storage) (Repository, error) {
	db := backing.SQLiteDB()
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = backing.Close()
		return nil, fmt.Errorf("failed to initialize SQLite schema: %w", err)
	}
	return &sqliteRepository{db: db, backing: backing}, nil
}

func (r *sqliteRepository) Close() error {
	return r.backing.Close()
}

func (r *sqliteRepository) scanAgent(row *sql.Row, notFound *core.GatewayError) (*core.AgentDescriptor, error) {
	var a core.AgentDescriptor
	var ragIDs, fnIDs string
	err := row.Scan(&a.ID, &a.AgentURI, &a.Name, &a.BaseModelURI, &a.SystemPrompt, &ragIDs, &fnIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read agent: %w", err)
	}
	a.RagAssetIDs = unmarshalIDs(ragIDs)
	a.FunctionAssetIDs = unmarshalIDs(fnIDs)
	return &a, nil
}

const sqliteAgentColumns = "id, agent_uri, name, base_model_uri, system_prompt, rag_asset_ids, function_asset_ids"

func (r *sqliteRepository) GetAgent(ctx context.Context, id string) (*core.AgentDescriptor, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqliteAgentColumns+" FROM agents WHERE id = ?", id)
	return r.scanAgent(row, core.NewAgentNotFoundError(id))
}

func (r *sqliteRepository) GetAgentByURI(ctx context.Context, agentURI string) (*core.AgentDescriptor, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqliteAgentColumns+" FROM agents WHERE agent_uri = ?", agentURI)
	return r.scanAgent(row, core.NewAgentNotFoundError(agentURI))
}

func (r *sqliteRepository) ListAgents(ctx context.Context) ([]core.AgentDescriptor, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+sqliteAgentColumns+" FROM agents ORDER BY name")
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

func (r *sqliteRepository) SaveAgent(ctx context.Context, agent *core.AgentDescriptor) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agents (`+sqliteAgentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			agent_uri = excluded.agent_uri,
			name = excluded.name,
			base_model_uri = excluded.base_model_uri,
			system_prompt = excluded.system_prompt,
			rag_asset_ids = excluded.rag_asset_ids,
			function_asset_ids = excluded.function_asset_ids`,
		agent.ID, agent.AgentURI, agent.Name, agent.BaseModelURI, agent.SystemPrompt,
		marshalIDs(agent.RagAssetIDs), marshalIDs(agent.FunctionAssetIDs))
	if err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

func (r *sqliteRepository) UpdateAgent(ctx context.Context, id string, update core.AgentUpdate) (*core.AgentDescriptor, error) {
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

func (r *sqliteRepository) DeleteAgent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewAgentNotFoundError(id)
	}
	return nil
}

func (r *sqliteRepository) GetFunction(ctx context.Context, id string) (*core.FunctionAsset, error) {
	var f core.FunctionAsset
	err := r.db.QueryRowContext(ctx,
		"SELECT id, uri, name, functions_path, functions_name FROM functions WHERE id = ?", id).
		Scan(&f.ID, &f.URI, &f.Name, &f.Path, &f.FuncName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewFunctionNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read function: %w", err)
	}
	return &f, nil
}

func (r *sqliteRepository) ListFunctions(ctx context.Context) ([]core.FunctionAsset, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, uri, name, functions_path, functions_name FROM functions ORDER BY name")
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

func (r *sqliteRepository) SaveFunction(ctx context.Context, fn *core.FunctionAsset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO functions (id, uri, name, functions_path, functions_name) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uri = excluded.uri,
			name = excluded.name,
			functions_path = excluded.functions_path,
			functions_name = excluded.functions_name`,
		fn.ID, fn.URI, fn.Name, fn.Path, fn.FuncName)
	if err != nil {
		return fmt.Errorf("failed to save function: %w", err)
	}
	return nil
}

func (r *sqliteRepository) DeleteFunction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM functions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete function: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewFunctionNotFoundError(id)
	}
	return nil
}

func (r *sqliteRepository) GetAssetMetadata(ctx context.Context, id string) (*core.AssetMetadata, error) {
	var m core.AssetMetadata
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, vs_provider, basemodel_uri FROM assets WHERE id = ?", id).
		Scan(&m.ID, &m.Name, &m.VectorStoreProvider, &m.BasemodelURI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewAssetNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset metadata: %w", err)
	}
	return &m, nil
}

func (r *sqliteRepository) ListAssetMetadata(ctx context.Context) ([]core.AssetMetadata, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, vs_provider, basemodel_uri FROM assets ORDER BY name")
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

func (r *sqliteRepository) SaveAssetMetadata(ctx context.Context, meta *core.AssetMetadata) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, name, vs_provider, basemodel_uri) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			vs_provider = excluded.vs_provider,
			basemodel_uri = excluded.basemodel_uri`,
		meta.ID, meta.Name, meta.VectorStoreProvider, meta.BasemodelURI)
	if err != nil {
		return fmt.Errorf("failed to save asset metadata: %w", err)
	}
	return nil
}

func (r *sqliteRepository) DeleteAssetMetadata(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete asset metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewAssetNotFoundError(id)
	}
	return nil
}

func (r *sqliteRepository) AppendMessage(ctx context.Context, sessionID, agentURI string, msg core.ChatTurnMessage) error {
	payload, err := encodeTurnMessage(msg)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO chat_history (session_id, agent_uri, payload) VALUES (?, ?, ?)",
		sessionID, agentURI, payload)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

func (r *sqliteRepository) GetHistory(ctx context.Context, sessionID string) ([]core.ChatTurnMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT payload FROM chat_history WHERE session_id = ? ORDER BY seq", sessionID)
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

func (r *sqliteRepository) DeleteHistory(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chat_history WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}
