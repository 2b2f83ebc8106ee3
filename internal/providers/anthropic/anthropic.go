// Package anthropic provides the Anthropic provider for the gateway,
// built on the official Anthropic Go SDK.
package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
)

const (
	ProviderID = "anthropic"

	propAPIKey = "api_key"

	// Required by the Messages API.
	defaultMaxTokens = 4096
)

// Provider implements core.Provider for the Anthropic API.
type Provider struct {
	*providers.Base
}

// New creates the Anthropic provider. The API key defaults to the
// ANTHROPIC_API_KEY environment variable.
func New(settings *providers.SettingsStore) *Provider {
	base := providers.NewBase(providers.BaseConfig{
		ID:                  ProviderID,
		DisplayName:         "Anthropic",
		CredentialKeyPrefix: "sk-ant-",
		Properties: map[string]core.ProviderProperty{
			propAPIKey: {
				Description:  "Anthropic API key",
				Hint:         "sk-ant-...",
				Value:        os.Getenv("ANTHROPIC_API_KEY"),
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

// ChatModel returns a chat handle for the named model.
func (p *Provider) ChatModel(_ context.Context, uri core.ModelURI, tools []core.ToolDescriptor) (core.ChatModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "Anthropic API key is not configured")
	}
	client := anthropic.NewClient(option.WithAPIKey(p.Property(propAPIKey)))
	return &chatModel{
		client: &client,
		model:  anthropic.Model(uri.ModelName),
		tools:  convertTools(tools),
	}, nil
}

// EmbeddingModel is unsupported; Anthropic hosts no embedding models.
func (p *Provider) EmbeddingModel(_ context.Context, uri core.ModelURI) (core.EmbeddingModel, error) {
	return nil, core.NewModelUnavailableError(ProviderID, "Anthropic does not host embedding models")
}

// Describe returns the descriptor with live health state.
func (p *Provider) Describe() core.ProviderDescriptor {
	status := core.StatusUnavailable
	if p.Healthy(context.Background()) {
		status = core.StatusAvailable
	}
	return p.Base.Describe(status)
}

type chatModel struct {
	client *anthropic.Client
	model  anthropic.Model
	tools  []anthropic.ToolUnionParam
}

// convertTools maps the neutral tool schema into the SDK's tool params.
// The SDK serializes the parameter block under input_schema itself.
func convertTools(tools []core.ToolDescriptor) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		props := make(map[string]any, len(t.Schema.Properties))
		for name, spec := range t.Schema.Properties {
			prop := map[string]any{"type": spec.Type}
			if spec.Description != "" {
				prop["description"] = spec.Description
			}
			props[name] = prop
		}
		inputSchema := anthropic.ToolInputSchemaParam{Properties: props}
		if len(t.Schema.Required) > 0 {
			inputSchema.Required = t.Schema.Required
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
		if t.Description != "" {
			out[i].OfTool.Description = anthropic.String(t.Description)
		}
	}
	return out
}

// buildParams splits the system message into the System parameter and
// converts the remaining messages, images included.
func (m *chatModel) buildParams(messages []core.Message) anthropic.MessageNewParams {
	var system []anthropic.TextBlockParam
	converted := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == core.RoleSystem {
			system = append(system, anthropic.TextBlockParam{Text: msg.Text()})
			continue
		}

		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case core.PartImage:
				blocks = append(blocks, anthropic.NewImageBlockBase64(
					part.MIMEType, base64.StdEncoding.EncodeToString(part.Data)))
			case core.PartText:
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		}

		if msg.Role == core.RoleAssistant {
			converted = append(converted, anthropic.NewAssistantMessage(blocks...))
		} else {
			converted = append(converted, anthropic.NewUserMessage(blocks...))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     m.model,
		Messages:  converted,
		MaxTokens: defaultMaxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(m.tools) > 0 {
		params.Tools = m.tools
	}
	return params
}

// Invoke issues a blocking Messages call and normalizes the content blocks.
func (m *chatModel) Invoke(ctx context.Context, messages []core.Message) (*core.ModelResponse, error) {
	msg, err := m.client.Messages.New(ctx, m.buildParams(messages))
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "message request failed: "+err.Error(), err)
	}
	return normalizeContent(msg.Content), nil
}

func normalizeContent(content []anthropic.ContentBlockUnion) *core.ModelResponse {
	out := &core.ModelResponse{}
	for _, block := range content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Parts = append(out.Parts, variant.Text)
		case anthropic.ToolUseBlock:
			var args map[string]any
			if err := json.Unmarshal(variant.Input, &args); err != nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{Name: variant.Name, Args: args})
		}
	}
	return out
}

// Stream issues a streaming Messages call, forwarding text deltas.
func (m *chatModel) Stream(ctx context.Context, messages []core.Message, fn core.StreamFunc) error {
	stream := m.client.Messages.NewStreaming(ctx, m.buildParams(messages))

	for stream.Next() {
		event := stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if err := fn(deltaVariant.Text); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return core.NewProviderError(ProviderID, "streaming request failed: "+err.Error(), err)
	}
	return nil
}
