package core

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Capability tags a model with what it can do.
type Capability string

const (
	CapabilityAll            Capability = "all"
	CapabilityConversational Capability = "conversational"
	CapabilityVision         Capability = "vision"
	CapabilityEmbedding      Capability = "embedding"
	CapabilityTools          Capability = "tools"
)

// OutputFormat selects the response-format instruction appended to the
// system prompt.
type OutputFormat string

const (
	FormatPlain    OutputFormat = "plain"
	FormatMarkdown OutputFormat = "markdown"
	FormatLaTeX    OutputFormat = "latex"
)

// FormatInstructions maps an output format to the instruction line appended
// to a non-empty system prompt.
var FormatInstructions = map[OutputFormat]string{
	FormatPlain:    "The response is in plain text format.",
	FormatMarkdown: "The response is in markdown format.",
	FormatLaTeX:    "The response is in LaTeX format.",
}

// PartType identifies the kind of a message content part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// ContentPart is one element of a message's content list. Text parts carry
// Text; image parts carry MIMEType and raw Data (base64-encoded on the wire
// by each provider).
type ContentPart struct {
	Type     PartType
	Text     string
	MIMEType string
	Data     []byte
}

// Message is a single prompt message handed to a chat model.
type Message struct {
	Role  Role
	Parts []ContentPart
}

// TextMessage builds a message with a single text part.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []ContentPart{{Type: PartText, Text: text}}}
}

// Text concatenates the text parts of the message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// Attachment is a file sent with a chat turn.
type Attachment struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// ChatTurnMessage is one persisted history entry. History is append-only
// and owned by the session; the core only appends and replays.
type ChatTurnMessage struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// CatalogEntry describes one model offered by a provider. Ready=false means
// the model is known but must be fetched before use (local providers).
type CatalogEntry struct {
	ProviderID   string       `json:"provider"`
	BasemodelURI string       `json:"basemodel_uri"`
	Name         string       `json:"name"`
	Ready        bool         `json:"ready"`
	Weight       int          `json:"weight"`
	Tags         []Capability `json:"tags,omitempty"`
}

// HasTag reports whether the entry carries the given capability tag.
func (e CatalogEntry) HasTag(c Capability) bool {
	for _, t := range e.Tags {
		if t == c {
			return true
		}
	}
	return false
}

// ProviderStatus is the health state exposed in a ProviderDescriptor.
type ProviderStatus string

const (
	StatusAvailable   ProviderStatus = "available"
	StatusUnavailable ProviderStatus = "unavailable"
)

// ProviderProperty is one configuration field of a provider. Credential
// values are masked before leaving the provider.
type ProviderProperty struct {
	Description  string `json:"description"`
	Hint         string `json:"hint,omitempty"`
	Value        string `json:"value"`
	IsCredential bool   `json:"is_credential"`
}

// ProviderModelInfo is one model row in a provider descriptor, with its
// selection state for the admin surface.
type ProviderModelInfo struct {
	ID            string       `json:"id"`
	Selected      bool         `json:"selected"`
	IsUserDefined bool         `json:"is_user_defined,omitempty"`
	Tags          []Capability `json:"tags"`
}

// ProviderDescriptor is a provider's identity plus its current
// configuration state, credentials masked.
type ProviderDescriptor struct {
	ID                        string                      `json:"id"`
	DisplayName               string                      `json:"name"`
	CredentialKeyPrefix       string                      `json:"key_prefix"`
	SupportsUserDefinedModels bool                        `json:"supports_user_defined_models"`
	Status                    ProviderStatus              `json:"status"`
	Weight                    int                         `json:"weight"`
	Properties                map[string]ProviderProperty `json:"properties"`
	Models                    []ProviderModelInfo         `json:"models"`
}

// ProviderConfigUpdate is an administrative change to a provider's
// configuration. Nil fields are left untouched.
type ProviderConfigUpdate struct {
	ProviderID        string               `json:"provider_id"`
	Properties        map[string]string    `json:"properties,omitempty"`
	Weight            *int                 `json:"weight,omitempty"`
	SelectedModels    []string             `json:"selected_models,omitempty"`
	CapabilityIndexes map[Capability][]int `json:"capability_indexes,omitempty"`
}

// AgentDescriptor binds a named persona to a base model URI plus optional
// retrieval assets and tool callables. The core only reads agents.
type AgentDescriptor struct {
	ID               string   `json:"id"`
	AgentURI         string   `json:"agent_uri"`
	Name             string   `json:"name"`
	BaseModelURI     string   `json:"base_model_uri"`
	SystemPrompt     string   `json:"system_prompt,omitempty"`
	RagAssetIDs      []string `json:"rag_asset_ids"`
	FunctionAssetIDs []string `json:"function_asset_ids"`
}

// AgentUpdate mutates an agent in place. Nil fields are left untouched.
type AgentUpdate struct {
	Name             *string   `json:"name,omitempty"`
	BaseModelURI     *string   `json:"base_model_uri,omitempty"`
	SystemPrompt     *string   `json:"system_prompt,omitempty"`
	RagAssetIDs      *[]string `json:"rag_asset_ids,omitempty"`
	FunctionAssetIDs *[]string `json:"function_asset_ids,omitempty"`
}

// AssetMetadata is the metadata record of a retrieval asset. BasemodelURI
// is the embedding model the index was built with; the same model family
// must be used again at query and update time.
type AssetMetadata struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	VectorStoreProvider string `json:"vs_provider"`
	BasemodelURI        string `json:"basemodel_uri"`
}

// FunctionAsset is the persisted record of a registered local callable.
type FunctionAsset struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Path     string `json:"functions_path"`
	FuncName string `json:"functions_name"`
}

// Document is one retrievable passage of a vector index.
type Document struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ToolCall is a structured tool invocation as emitted by providers that
// return a tool-call list (Ollama, Anthropic).
type ToolCall struct {
	Name string
	Args map[string]any
}

// LegacyFunctionCall is the OpenAI-style function_call shape whose
// arguments arrive as an unparsed JSON string.
type LegacyFunctionCall struct {
	Name      string
	Arguments string
}

// ModelResponse is the boundary-normalized result of a blocking model
// invocation. Providers convert their native response shape into this
// before it reaches the rest of the pipeline.
type ModelResponse struct {
	// Parts holds the textual content parts in response order. Providers
	// that return a single string produce one part.
	Parts []string

	// ToolCalls holds structured tool calls, if any.
	ToolCalls []ToolCall

	// FunctionCall holds a legacy function_call, if any.
	FunctionCall *LegacyFunctionCall
}

// InlineText returns the first text part, or "".
func (r *ModelResponse) InlineText() string {
	if len(r.Parts) > 0 {
		return r.Parts[0]
	}
	return ""
}

// HasToolDecision reports whether the response selected a tool.
func (r *ModelResponse) HasToolDecision() bool {
	return len(r.ToolCalls) > 0 || r.FunctionCall != nil
}

// ExecutionStrategy is derived per turn from the resolved agent's bound
// functions; it is never persisted.
type ExecutionStrategy string

const (
	StrategyStreaming          ExecutionStrategy = "streaming"
	StrategyInvokeThenDispatch ExecutionStrategy = "invoke-then-dispatch"
)

// StrategyFor returns the execution strategy for a turn with the given
// number of bound functions.
func StrategyFor(boundFunctions int) ExecutionStrategy {
	if boundFunctions == 0 {
		return StrategyStreaming
	}
	return StrategyInvokeThenDispatch
}
