// Package bedrock provides the AWS Bedrock provider for the gateway,
// built on the Converse API of aws-sdk-go-v2.
package bedrock

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
)

const (
	ProviderID = "bedrock"

	propRegion          = "region"
	propAccessKeyID     = "access_key_id"
	propSecretAccessKey = "secret_access_key"
)

// Provider implements core.Provider for AWS Bedrock.
type Provider struct {
	*providers.Base
}

// New creates the Bedrock provider. Region and credentials default to the
// standard AWS environment variables. When no static key pair is
// configured, the SDK's default credential chain applies.
func New(settings *providers.SettingsStore) *Provider {
	base := providers.NewBase(providers.BaseConfig{
		ID:          ProviderID,
		DisplayName: "AWS Bedrock",
		Properties: map[string]core.ProviderProperty{
			propRegion: {
				Description: "AWS region hosting the models",
				Hint:        "us-east-1",
				Value:       os.Getenv("AWS_REGION"),
			},
			propAccessKeyID: {
				Description:  "AWS access key ID",
				Value:        os.Getenv("AWS_ACCESS_KEY_ID"),
				IsCredential: true,
			},
			propSecretAccessKey: {
				Description:  "AWS secret access key",
				Value:        os.Getenv("AWS_SECRET_ACCESS_KEY"),
				IsCredential: true,
			},
		},
		Settings: settings,
	})
	return &Provider{Base: base}
}

// Healthy requires a region. Credentials may come from the default chain.
func (p *Provider) Healthy(_ context.Context) bool {
	return p.Property(propRegion) != ""
}

func (p *Provider) newClient(ctx context.Context) (*bedrockruntime.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(p.Property(propRegion)),
	}
	if key, secret := p.Property(propAccessKeyID), p.Property(propSecretAccessKey); key != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "loading AWS configuration failed: "+err.Error(), err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// ChatModel returns a chat handle for the named model.
func (p *Provider) ChatModel(ctx context.Context, uri core.ModelURI, tools []core.ToolDescriptor) (core.ChatModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "AWS region is not configured")
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	return &chatModel{
		client: client,
		model:  uri.ModelName,
		tools:  convertTools(tools),
	}, nil
}

// EmbeddingModel is unsupported over Converse; Bedrock embedding models
// answer only the per-family InvokeModel payloads.
func (p *Provider) EmbeddingModel(_ context.Context, uri core.ModelURI) (core.EmbeddingModel, error) {
	return nil, core.NewModelUnavailableError(ProviderID, "Bedrock embedding models are not supported")
}

// Describe returns the descriptor with live health state.
func (p *Provider) Describe() core.ProviderDescriptor {
	status := core.StatusUnavailable
	if p.Healthy(context.Background()) {
		status = core.StatusAvailable
	}
	return p.Base.Describe(status)
}

// convertTools maps the neutral tool schema into Converse tool specs.
func convertTools(tools []core.ToolDescriptor) *types.ToolConfiguration {
	if len(tools) == 0 {
		return nil
	}
	specs := make([]types.Tool, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]any, len(t.Schema.Properties))
		for name, spec := range t.Schema.Properties {
			prop := map[string]any{"type": spec.Type}
			if spec.Description != "" {
				prop["description"] = spec.Description
			}
			props[name] = prop
		}
		schema := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if len(t.Schema.Required) > 0 {
			schema["required"] = t.Schema.Required
		}
		spec := types.ToolSpecification{
			Name:        aws.String(t.Name),
			InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
		}
		if t.Description != "" {
			spec.Description = aws.String(t.Description)
		}
		specs = append(specs, &types.ToolMemberToolSpec{Value: spec})
	}
	return &types.ToolConfiguration{Tools: specs}
}

type chatModel struct {
	client *bedrockruntime.Client
	model  string
	tools  *types.ToolConfiguration
}

func imageFormat(mimeType string) (types.ImageFormat, bool) {
	switch strings.TrimPrefix(mimeType, "image/") {
	case "jpeg", "jpg":
		return types.ImageFormatJpeg, true
	case "png":
		return types.ImageFormatPng, true
	case "gif":
		return types.ImageFormatGif, true
	case "webp":
		return types.ImageFormatWebp, true
	}
	return "", false
}

// split carves system messages into Converse system blocks and converts
// the remaining conversation.
func (m *chatModel) split(messages []core.Message) ([]types.SystemContentBlock, []types.Message) {
	var system []types.SystemContentBlock
	converted := make([]types.Message, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == core.RoleSystem {
			system = append(system, &types.SystemContentBlockMemberText{Value: msg.Text()})
			continue
		}

		blocks := make([]types.ContentBlock, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case core.PartImage:
				format, ok := imageFormat(part.MIMEType)
				if !ok {
					continue
				}
				blocks = append(blocks, &types.ContentBlockMemberImage{
					Value: types.ImageBlock{
						Format: format,
						Source: &types.ImageSourceMemberBytes{Value: part.Data},
					},
				})
			case core.PartText:
				blocks = append(blocks, &types.ContentBlockMemberText{Value: part.Text})
			}
		}

		role := types.ConversationRoleUser
		if msg.Role == core.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		converted = append(converted, types.Message{Role: role, Content: blocks})
	}
	return system, converted
}

// Invoke issues a blocking Converse call and normalizes the output blocks.
func (m *chatModel) Invoke(ctx context.Context, messages []core.Message) (*core.ModelResponse, error) {
	system, converted := m.split(messages)
	input := &bedrockruntime.ConverseInput{
		ModelId:    aws.String(m.model),
		Messages:   converted,
		System:     system,
		ToolConfig: m.tools,
	}

	resp, err := m.client.Converse(ctx, input)
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "converse request failed: "+err.Error(), err)
	}

	out := &core.ModelResponse{}
	message, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return out, nil
	}
	for _, block := range message.Value.Content {
		switch v := block.(type) {
		case *types.ContentBlockMemberText:
			out.Parts = append(out.Parts, v.Value)
		case *types.ContentBlockMemberToolUse:
			var args map[string]any
			if v.Value.Input != nil {
				if err := v.Value.Input.UnmarshalSmithyDocument(&args); err != nil {
					continue
				}
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{
				Name: aws.ToString(v.Value.Name),
				Args: args,
			})
		}
	}
	return out, nil
}

// Stream issues a ConverseStream call, forwarding text deltas.
func (m *chatModel) Stream(ctx context.Context, messages []core.Message, fn core.StreamFunc) error {
	system, converted := m.split(messages)
	input := &bedrockruntime.ConverseStreamInput{
		ModelId:    aws.String(m.model),
		Messages:   converted,
		System:     system,
		ToolConfig: m.tools,
	}

	resp, err := m.client.ConverseStream(ctx, input)
	if err != nil {
		return core.NewProviderError(ProviderID, "streaming request failed: "+err.Error(), err)
	}
	stream := resp.GetStream()
	defer func() {
		_ = stream.Close()
	}()

	for event := range stream.Events() {
		delta, ok := event.(*types.ConverseStreamOutputMemberContentBlockDelta)
		if !ok {
			continue
		}
		text, ok := delta.Value.Delta.(*types.ContentBlockDeltaMemberText)
		if !ok {
			continue
		}
		if err := fn(text.Value); err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil {
		return core.NewProviderError(ProviderID, "streaming request failed: "+err.Error(), err)
	}
	return nil
}
