// Package ollama provides the local Ollama provider for the gateway.
// Unlike the cloud providers, health is a live ping and models are
// pulled on demand before first use.
package ollama

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/pkg/httpclient"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
)

const (
	ProviderID = "ollama"

	defaultBaseURL = "http://localhost:11434"

	propBaseURL = "base_url"

	pingTimeout = 5 * time.Second
)

// Provider implements core.Provider for a local Ollama server.
type Provider struct {
	*providers.Base
	httpClient *http.Client
}

// New creates the Ollama provider. The server address defaults to the
// OLLAMA_HOST environment variable.
func New(settings *providers.SettingsStore) *Provider {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	base := providers.NewBase(providers.BaseConfig{
		ID:                        ProviderID,
		DisplayName:               "Ollama",
		SupportsUserDefinedModels: true,
		Properties: map[string]core.ProviderProperty{
			propBaseURL: {
				Description: "Ollama server address",
				Hint:        defaultBaseURL,
				Value:       baseURL,
			},
		},
		Settings: settings,
	})
	return &Provider{Base: base, httpClient: httpclient.NewDefaultHTTPClient()}
}

func (p *Provider) client() (*api.Client, error) {
	baseURL := p.Property(propBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, core.NewValidationError("invalid Ollama server address: "+baseURL, err)
	}
	return api.NewClient(parsed, p.httpClient), nil
}

// Healthy pings the local server. A configured but unreachable server
// is unhealthy, unlike the credential-only checks of cloud providers.
func (p *Provider) Healthy(ctx context.Context) bool {
	client, err := p.client()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	_, err = client.List(ctx)
	return err == nil
}

// installed returns the set of locally pulled models, keyed by name with
// the :latest tag stripped.
func (p *Provider) installed(ctx context.Context, client *api.Client) (map[string]bool, error) {
	resp, err := client.List(ctx)
	if err != nil {
		return nil, core.NewModelUnavailableError(ProviderID, "Ollama server is unreachable: "+err.Error())
	}
	names := make(map[string]bool, len(resp.Models))
	for _, m := range resp.Models {
		names[core.StripLatestTag(m.Name)] = true
	}
	return names, nil
}

// ensureReady pulls the model if it is not installed yet. A model that
// is still missing after one pull attempt is reported as not ready.
func (p *Provider) ensureReady(ctx context.Context, client *api.Client, model string) error {
	names, err := p.installed(ctx, client)
	if err != nil {
		return err
	}
	if names[core.StripLatestTag(model)] {
		return nil
	}

	err = client.Pull(ctx, &api.PullRequest{Model: model}, func(api.ProgressResponse) error { return nil })
	if err != nil {
		return core.NewModelNotReadyError(ProviderID, model)
	}

	names, err = p.installed(ctx, client)
	if err != nil {
		return err
	}
	if !names[core.StripLatestTag(model)] {
		return core.NewModelNotReadyError(ProviderID, model)
	}
	return nil
}

// ListModels reports readiness from the locally installed set instead of
// assuming every catalog entry is pullable right now.
func (p *Provider) ListModels(filter core.Capability) []core.CatalogEntry {
	entries := p.Base.ListModels(filter)

	client, err := p.client()
	if err != nil {
		return entries
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	names, err := p.installed(ctx, client)
	if err != nil {
		return entries
	}

	for i := range entries {
		entries[i].Ready = names[core.StripLatestTag(entries[i].Name)]
	}
	return entries
}

// ChatModel returns a chat handle, pulling the model first if needed.
func (p *Provider) ChatModel(ctx context.Context, uri core.ModelURI, tools []core.ToolDescriptor) (core.ChatModel, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}
	if err := p.ensureReady(ctx, client, uri.ModelName); err != nil {
		return nil, err
	}
	return &chatModel{
		client: client,
		model:  uri.ModelName,
		tools:  convertTools(tools),
	}, nil
}

// EmbeddingModel returns an embedding handle, pulling the model first if
// needed.
func (p *Provider) EmbeddingModel(ctx context.Context, uri core.ModelURI) (core.EmbeddingModel, error) {
	client, err := p.client()
	if err != nil {
		return nil, err
	}
	if err := p.ensureReady(ctx, client, uri.ModelName); err != nil {
		return nil, err
	}
	return &embeddingModel{client: client, model: uri.ModelName}, nil
}

// Describe returns the descriptor with live health state.
func (p *Provider) Describe() core.ProviderDescriptor {
	status := core.StatusUnavailable
	if p.Healthy(context.Background()) {
		status = core.StatusAvailable
	}
	return p.Base.Describe(status)
}

// convertTools maps the neutral tool schema into Ollama tool params.
func convertTools(tools []core.ToolDescriptor) []api.Tool {
	out := make([]api.Tool, 0, len(tools))
	for _, t := range tools {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Required:   t.Schema.Required,
			Properties: make(map[string]api.ToolProperty, len(t.Schema.Properties)),
		}
		for name, spec := range t.Schema.Properties {
			params.Properties[name] = api.ToolProperty{
				Type:        api.PropertyType{spec.Type},
				Description: spec.Description,
			}
		}
		out = append(out, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

type chatModel struct {
	client *api.Client
	model  string
	tools  []api.Tool
}

func wireMessages(messages []core.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		wire := api.Message{Role: string(msg.Role), Content: msg.Text()}
		for _, p := range msg.Parts {
			if p.Type == core.PartImage {
				wire.Images = append(wire.Images, api.ImageData(p.Data))
			}
		}
		out = append(out, wire)
	}
	return out
}

// Invoke issues a non-streamed chat call and normalizes the response.
func (m *chatModel) Invoke(ctx context.Context, messages []core.Message) (*core.ModelResponse, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    m.model,
		Messages: wireMessages(messages),
		Tools:    m.tools,
		Stream:   &stream,
	}

	out := &core.ModelResponse{}
	err := m.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			out.Parts = append(out.Parts, resp.Message.Content)
		}
		for _, call := range resp.Message.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{
				Name: call.Function.Name,
				Args: call.Function.Arguments,
			})
		}
		return nil
	})
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "chat request failed: "+err.Error(), err)
	}
	return out, nil
}

// Stream issues a streamed chat call, forwarding each content chunk.
func (m *chatModel) Stream(ctx context.Context, messages []core.Message, fn core.StreamFunc) error {
	stream := true
	req := &api.ChatRequest{
		Model:    m.model,
		Messages: wireMessages(messages),
		Tools:    m.tools,
		Stream:   &stream,
	}

	err := m.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		return fn(resp.Message.Content)
	})
	if err != nil {
		return core.NewProviderError(ProviderID, "streaming request failed: "+err.Error(), err)
	}
	return nil
}

type embeddingModel struct {
	client *api.Client
	model  string
}

// EmbedDocuments embeds texts in one batched call.
func (m *embeddingModel) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := m.client.Embed(ctx, &api.EmbedRequest{Model: m.model, Input: texts})
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "embedding request failed: "+err.Error(), err)
	}
	return resp.Embeddings, nil
}

// EmbedQuery embeds a single query string.
func (m *embeddingModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := m.client.Embed(ctx, &api.EmbedRequest{Model: m.model, Input: text})
	if err != nil {
		return nil, core.NewProviderError(ProviderID, "embedding request failed: "+err.Error(), err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, core.NewProviderError(ProviderID, "embeddings response contained no vectors", nil)
	}
	return resp.Embeddings[0], nil
}
