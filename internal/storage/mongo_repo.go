package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// mongoRepository implements Repository over a MongoDB database.
type mongoRepository struct {
	agents    *mongo.Collection
	functions *mongo.Collection
	assets    *mongo.Collection
	history   *mongo.Collection
	backing   Storage
}

func newMongoRepository(db *mongo.Database, backing Storage) (Repository, error) {
	return &mongoRepository{
		agents:    db.Collection("agents"),
		functions: db.Collection("functions"),
		assets:    db.Collection("assets"),
		history:   db.Collection("chat_history"),
		backing:   backing,
	}, nil
}

func (r *mongoRepository) Close() error {
	return r.backing.Close()
}

type agentDoc struct {
	ID               string   `bson:"_id"`
	AgentURI         string   `bson:"agent_uri"`
	Name             string   `bson:"name"`
	BaseModelURI     string   `bson:"base_model_uri"`
	SystemPrompt     string   `bson:"system_prompt"`
	RagAssetIDs      []string `bson:"rag_asset_ids"`
	FunctionAssetIDs []string `bson:"function_asset_ids"`
}

func (d agentDoc) descriptor() core.AgentDescriptor {
	ragIDs := d.RagAssetIDs
	if ragIDs == nil {
		ragIDs = []string{}
	}
	fnIDs := d.FunctionAssetIDs
	if fnIDs == nil {
		fnIDs = []string{}
	}
	return core.AgentDescriptor{
		ID:               d.ID,
		AgentURI:         d.AgentURI,
		Name:             d.Name,
		BaseModelURI:     d.BaseModelURI,
		SystemPrompt:     d.SystemPrompt,
		RagAssetIDs:      ragIDs,
		FunctionAssetIDs: fnIDs,
	}
}

func (r *mongoRepository) getAgentBy(ctx context.Context, filter bson.M, notFound *core.GatewayError) (*core.AgentDescriptor, error) {
	var doc agentDoc
	err := r.agents.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read agent: %w", err)
	}
	a := doc.descriptor()
	return &a, nil
}

func (r *mongoRepository) GetAgent(ctx context.Context, id string) (*core.AgentDescriptor, error) {
	return r.getAgentBy(ctx, bson.M{"_id": id}, core.NewAgentNotFoundError(id))
}

func (r *mongoRepository) GetAgentByURI(ctx context.Context, agentURI string) (*core.AgentDescriptor, error) {
	return r.getAgentBy(ctx, bson.M{"agent_uri": agentURI}, core.NewAgentNotFoundError(agentURI))
}

func (r *mongoRepository) ListAgents(ctx context.Context) ([]core.AgentDescriptor, error) {
	cur, err := r.agents.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer cur.Close(ctx)

	agents := []core.AgentDescriptor{}
	for cur.Next(ctx) {
		var doc agentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode agent: %w", err)
		}
		agents = append(agents, doc.descriptor())
	}
	return agents, cur.Err()
}

func (r *mongoRepository) SaveAgent(ctx context.Context, agent *core.AgentDescriptor) error {
	doc := agentDoc{
		ID:               agent.ID,
		AgentURI:         agent.AgentURI,
		Name:             agent.Name,
		BaseModelURI:     agent.BaseModelURI,
		SystemPrompt:     agent.SystemPrompt,
		RagAssetIDs:      agent.RagAssetIDs,
		FunctionAssetIDs: agent.FunctionAssetIDs,
	}
	_, err := r.agents.ReplaceOne(ctx, bson.M{"_id": agent.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save agent: %w", err)
	}
	return nil
}

func (r *mongoRepository) UpdateAgent(ctx context.Context, id string, update core.AgentUpdate) (*core.AgentDescriptor, error) {
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

func (r *mongoRepository) DeleteAgent(ctx context.Context, id string) error {
	res, err := r.agents.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.NewAgentNotFoundError(id)
	}
	return nil
}

type functionDoc struct {
	ID       string `bson:"_id"`
	URI      string `bson:"uri"`
	Name     string `bson:"name"`
	Path     string `bson:"functions_path"`
	FuncName string `bson:"functions_name"`
}

func (r *mongoRepository) GetFunction(ctx context.Context, id string) (*core.FunctionAsset, error) {
	var doc functionDoc
	err := r.functions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.NewFunctionNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read function: %w", err)
	}
	return &core.FunctionAsset{ID: doc.ID, URI: doc.URI, Name: doc.Name, Path: doc.Path, FuncName: doc.FuncName}, nil
}

func (r *mongoRepository) ListFunctions(ctx context.Context) ([]core.FunctionAsset, error) {
	cur, err := r.functions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	defer cur.Close(ctx)

	fns := []core.FunctionAsset{}
	for cur.Next(ctx) {
		var doc functionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode function: %w", err)
		}
		fns = append(fns, core.FunctionAsset{ID: doc.ID, URI: doc.URI, Name: doc.Name, Path: doc.Path, FuncName: doc.FuncName})
	}
	return fns, cur.Err()
}

func (r *mongoRepository) SaveFunction(ctx context.Context, fn *core.FunctionAsset) error {
	doc := functionDoc{ID: fn.ID, URI: fn.URI, Name: fn.Name, Path: fn.Path, FuncName: fn.FuncName}
	_, err := r.functions.ReplaceOne(ctx, bson.M{"_id": fn.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save function: %w", err)
	}
	return nil
}

func (r *mongoRepository) DeleteFunction(ctx context.Context, id string) error {
	res, err := r.functions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete function: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.NewFunctionNotFoundError(id)
	}
	return nil
}

type assetDoc struct {
	ID                  string `bson:"_id"`
	Name                string `bson:"name"`
	VectorStoreProvider string `bson:"vs_provider"`
	BasemodelURI        string `bson:"basemodel_uri"`
}

func (r *mongoRepository) GetAssetMetadata(ctx context.Context, id string) (*core.AssetMetadata, error) {
	var doc assetDoc
	err := r.assets.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.NewAssetNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read asset metadata: %w", err)
	}
	return &core.AssetMetadata{ID: doc.ID, Name: doc.Name, VectorStoreProvider: doc.VectorStoreProvider, BasemodelURI: doc.BasemodelURI}, nil
}

func (r *mongoRepository) ListAssetMetadata(ctx context.Context) ([]core.AssetMetadata, error) {
	cur, err := r.assets.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list asset metadata: %w", err)
	}
	defer cur.Close(ctx)

	assets := []core.AssetMetadata{}
	for cur.Next(ctx) {
		var doc assetDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode asset metadata: %w", err)
		}
		assets = append(assets, core.AssetMetadata{ID: doc.ID, Name: doc.Name, VectorStoreProvider: doc.VectorStoreProvider, BasemodelURI: doc.BasemodelURI})
	}
	return assets, cur.Err()
}

func (r *mongoRepository) SaveAssetMetadata(ctx context.Context, meta *core.AssetMetadata) error {
	doc := assetDoc{ID: meta.ID, Name: meta.Name, VectorStoreProvider: meta.VectorStoreProvider, BasemodelURI: meta.BasemodelURI}
	_, err := r.assets.ReplaceOne(ctx, bson.M{"_id": meta.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save asset metadata: %w", err)
	}
	return nil
}

func (r *mongoRepository) DeleteAssetMetadata(ctx context.Context, id string) error {
	res, err := r.assets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete asset metadata: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.NewAssetNotFoundError(id)
	}
	return nil
}

type historyDoc struct {
	SessionID string    `bson:"session_id"`
	AgentURI  string    `bson:"agent_uri"`
	At        time.Time `bson:"at"`
	Payload   []byte    `bson:"payload"`
}

func (r *mongoRepository) AppendMessage(ctx context.Context, sessionID, agentURI string, msg core.ChatTurnMessage) error {
	payload, err := encodeTurnMessage(msg)
	if err != nil {
		return err
	}
	_, err = r.history.InsertOne(ctx, historyDoc{
		SessionID: sessionID,
		AgentURI:  agentURI,
		At:        time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

func (r *mongoRepository) GetHistory(ctx context.Context, sessionID string) ([]core.ChatTurnMessage, error) {
	// _id order preserves insertion order within a session
	cur, err := r.history.Find(ctx, bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer cur.Close(ctx)

	history := []core.ChatTurnMessage{}
	for cur.Next(ctx) {
		var doc historyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode history entry: %w", err)
		}
		msg, err := decodeTurnMessage(doc.Payload)
		if err != nil {
			return nil, err
		}
		history = append(history, msg)
	}
	return history, cur.Err()
}

func (r *mongoRepository) DeleteHistory(ctx context.Context, sessionID string) error {
	_, err := r.history.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}
