// Package googlegemini provides the Google Gemini provider for the
// gateway, built on the official generative-ai-go SDK.
package googlegemini

import (
	"context"
	"errors"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
)

const (
	ProviderID = "googlegemini"

	propAPIKey = "api_key"
)

// Provider implements core.Provider for the Gemini API.
type Provider struct {
	*providers.Base
}

// New creates the Gemini provider. The API key defaults to the
// GOOGLE_API_KEY environment variable, falling back to GEMINI_API_KEY.
func New(settings *providers.SettingsStore) *Provider {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	base := providers.NewBase(providers.BaseConfig{
		ID:                  ProviderID,
		DisplayName:         "Google Gemini",
		CredentialKeyPrefix: "AI",
		Properties: map[string]core.ProviderProperty{
			propAPIKey: {
				Description:  "Google AI Studio API key",
				Hint:         "AIza...",
				Value:        apiKey,
				IsCredential: true,
			},
		},
		Settings: settings,
	})
	return &Provider{Base: base}
}

// Healthy reports credential presence.
func (p *Provider) Healthy(_ context.Context) bool {
	return p.Property(propAPIKey) != ""
}

func (p *Provider) newClient(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(p.Property(propAPIKey)))
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "creating Gemini client failed: "+err.Error(), err)
	}
	return client, nil
}

// ChatModel returns a chat handle for the named model.
func (p *Provider) ChatModel(ctx context.Context, uri core.ModelURI, tools []core.ToolDescriptor) (core.ChatModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "Google API key is not configured")
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(uri.ModelName)
	if decls := convertTools(tools); len(decls) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return &chatModel{model: model}, nil
}

// EmbeddingModel returns an embedding handle for the named model.
func (p *Provider) EmbeddingModel(ctx context.Context, uri core.ModelURI) (core.EmbeddingModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "Google API key is not configured")
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &embeddingModel{model: client.EmbeddingModel(uri.ModelName)}, nil
}

// Describe returns the descriptor with live health state.
func (p *Provider) Describe() core.ProviderDescriptor {
	status := core.StatusUnavailable
	if p.Healthy(context.Background()) {
		status = core.StatusAvailable
	}
	return p.Base.Describe(status)
}

// convertTools maps the neutral tool schema into Gemini function
// declarations.
func convertTools(tools []core.ToolDescriptor) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if len(t.Schema.Properties) > 0 {
			schema := &genai.Schema{
				Type:       genai.TypeObject,
				Properties: make(map[string]*genai.Schema, len(t.Schema.Properties)),
				Required:   t.Schema.Required,
			}
			for name, spec := range t.Schema.Properties {
				schema.Properties[name] = &genai.Schema{
					Type:        schemaType(spec.Type),
					Description: spec.Description,
				}
			}
			decl.Parameters = schema
		}
		out = append(out, decl)
	}
	return out
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

type chatModel struct {
	model *genai.GenerativeModel
}

// split carves the system message into the model's system instruction,
// turns the rest into session history and returns the final message as
// the parts to send. Gemini expects the latest turn separately from the
// accumulated history.
func (m *chatModel) split(messages []core.Message) (history []*genai.Content, last []genai.Part) {
	var contents []*genai.Content
	for _, msg := range messages {
		if msg.Role == core.RoleSystem {
			m.model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Text())},
			}
			continue
		}
		role := "user"
		if msg.Role == core.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: convertParts(msg.Parts),
		})
	}
	if len(contents) == 0 {
		return nil, nil
	}
	tail := contents[len(contents)-1]
	return contents[:len(contents)-1], tail.Parts
}

func convertParts(parts []core.ContentPart) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case core.PartImage:
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: p.Data})
		case core.PartText:
			out = append(out, genai.Text(p.Text))
		}
	}
	return out
}

// Invoke issues a blocking generate call and normalizes candidate parts.
func (m *chatModel) Invoke(ctx context.Context, messages []core.Message) (*core.ModelResponse, error) {
	history, last := m.split(messages)
	session := m.model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, last...)
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "generate request failed: "+err.Error(), err)
	}
	return normalizeResponse(resp), nil
}

func normalizeResponse(resp *genai.GenerateContentResponse) *core.ModelResponse {
	out := &core.ModelResponse{}
	if resp == nil {
		return out
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				out.Parts = append(out.Parts, string(v))
			case genai.FunctionCall:
				out.ToolCalls = append(out.ToolCalls, core.ToolCall{Name: v.Name, Args: v.Args})
			}
		}
	}
	return out
}

// Stream issues a streaming generate call, forwarding text parts.
func (m *chatModel) Stream(ctx context.Context, messages []core.Message, fn core.StreamFunc) error {
	history, last := m.split(messages)
	session := m.model.StartChat()
	session.History = history

	iter := session.SendMessageStream(ctx, last...)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return core.NewProviderError(ProviderID, "streaming request failed: "+err.Error(), err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					if err := fn(string(text)); err != nil {
						return err
					}
				}
			}
		}
	}
}

type embeddingModel struct {
	model *genai.EmbeddingModel
}

// EmbedDocuments embeds texts in one batched call.
func (m *embeddingModel) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	batch := m.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}
	res, err := m.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "batch embedding request failed: "+err.Error(), err)
	}
	out := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		out = append(out, emb.Values)
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (m *embeddingModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	res, err := m.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "embedding request failed: "+err.Error(), err)
	}
	return res.Embedding.Values, nil
}
