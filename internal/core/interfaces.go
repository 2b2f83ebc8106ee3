package core

import "context"

// StreamFunc receives one produced token. Returning an error aborts the
// stream; the error is propagated to the Stream caller.
type StreamFunc func(token string) error

// ChatModel is a bound handle over one provider model, ready to invoke.
// Obtaining a handle performs no network I/O beyond local availability
// checks and never blocks on the first response token.
type ChatModel interface {
	// Invoke issues a single blocking call and returns the normalized
	// response. Used when tools are bound and the full response is needed
	// before a dispatch decision.
	Invoke(ctx context.Context, messages []Message) (*ModelResponse, error)

	// Stream issues a token-streaming call, forwarding each token to fn
	// in generation order.
	Stream(ctx context.Context, messages []Message, fn StreamFunc) error
}

// EmbeddingModel embeds documents and queries with one provider model.
type EmbeddingModel interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is the capability contract every LLM backend satisfies.
// Instances are process-wide, constructed once at startup, and read-mostly;
// only ApplyConfiguration mutates them.
type Provider interface {
	// ID returns the provider's scheme identifier (e.g. "openai").
	ID() string

	// Healthy reports whether the provider can serve requests: credential
	// presence for cloud providers, a live ping for local runtimes.
	Healthy(ctx context.Context) bool

	// CanHandle reports whether the URI's scheme matches this provider.
	// Never returns an error.
	CanHandle(uri string) bool

	// ListModels returns the provider's model catalog filtered by
	// capability. Cloud providers answer from their embedded catalog;
	// local runtimes may additionally consult the daemon for readiness.
	ListModels(filter Capability) []CatalogEntry

	// ChatModel returns a chat handle for the model named by uri, with the
	// given tool schemas bound. Fails with ModelUnavailable when
	// credentials are absent, ModelNotReady when a local model cannot be
	// fetched.
	ChatModel(ctx context.Context, uri ModelURI, tools []ToolDescriptor) (ChatModel, error)

	// EmbeddingModel returns an embedding handle for the model named by uri.
	EmbeddingModel(ctx context.Context, uri ModelURI) (EmbeddingModel, error)

	// Describe returns the provider's descriptor with credential values
	// masked.
	Describe() ProviderDescriptor

	// ApplyConfiguration applies an administrative settings change and
	// persists it through the settings store.
	ApplyConfiguration(update ProviderConfigUpdate) error
}

// Retriever fetches the most relevant passages of one vector index.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Document, error)
}

// AgentStore is the persisted-agent collaborator. The chat core only reads.
type AgentStore interface {
	GetAgentByURI(ctx context.Context, agentURI string) (*AgentDescriptor, error)
	GetAgent(ctx context.Context, id string) (*AgentDescriptor, error)
	ListAgents(ctx context.Context) ([]AgentDescriptor, error)
	SaveAgent(ctx context.Context, agent *AgentDescriptor) error
	UpdateAgent(ctx context.Context, id string, update AgentUpdate) (*AgentDescriptor, error)
	DeleteAgent(ctx context.Context, id string) error
}

// FunctionStore persists function asset records.
type FunctionStore interface {
	GetFunction(ctx context.Context, id string) (*FunctionAsset, error)
	ListFunctions(ctx context.Context) ([]FunctionAsset, error)
	SaveFunction(ctx context.Context, fn *FunctionAsset) error
	DeleteFunction(ctx context.Context, id string) error
}

// AssetStore persists retrieval asset metadata.
type AssetStore interface {
	GetAssetMetadata(ctx context.Context, id string) (*AssetMetadata, error)
	ListAssetMetadata(ctx context.Context) ([]AssetMetadata, error)
	SaveAssetMetadata(ctx context.Context, meta *AssetMetadata) error
	DeleteAssetMetadata(ctx context.Context, id string) error
}

// HistoryStore persists per-session conversation history as an ordered,
// append-only message list.
type HistoryStore interface {
	AppendMessage(ctx context.Context, sessionID, agentURI string, msg ChatTurnMessage) error
	GetHistory(ctx context.Context, sessionID string) ([]ChatTurnMessage, error)
	DeleteHistory(ctx context.Context, sessionID string) error
}
