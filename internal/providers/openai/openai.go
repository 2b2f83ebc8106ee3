// Package openai provides the OpenAI provider for the gateway.
package openai

import (
	"context"
	"net/http"
	"os"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/pkg/httpclient"
	"github.com/YusakuNo1/AiFoundry/internal/pkg/llmclient"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
)

const (
	ProviderID = "openai"

	defaultBaseURL = "https://api.openai.com/v1"

	propAPIKey  = "api_key"
	propBaseURL = "base_url"
)

// Provider implements core.Provider for the OpenAI API.
type Provider struct {
	*providers.Base
	httpClient *http.Client
}

// New creates the OpenAI provider. The API key defaults to the
// OPENAI_API_KEY environment variable and can be replaced at runtime
// through ApplyConfiguration.
func New(settings *providers.SettingsStore) *Provider {
	base := providers.NewBase(providers.BaseConfig{
		ID:                        ProviderID,
		DisplayName:               "OpenAI",
		CredentialKeyPrefix:       "sk-",
		SupportsUserDefinedModels: true,
		Properties: map[string]core.ProviderProperty{
			propAPIKey: {
				Description:  "OpenAI API key",
				Hint:         "sk-...",
				Value:        os.Getenv("OPENAI_API_KEY"),
				IsCredential: true,
			},
			propBaseURL: {
				Description: "API base URL",
				Value:       defaultBaseURL,
			},
		},
		Settings: settings,
	})
	return &Provider{Base: base, httpClient: httpclient.NewDefaultHTTPClient()}
}

// Healthy reports credential presence. Cloud providers are not pinged.
func (p *Provider) Healthy(_ context.Context) bool {
	return p.Property(propAPIKey) != ""
}

func (p *Provider) client() *llmclient.Client {
	baseURL := p.Property(propBaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return llmclient.NewWithHTTPClient(p.httpClient,
		llmclient.Config{ProviderName: ProviderID, BaseURL: baseURL},
		func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+p.Property(propAPIKey))
		})
}

// ChatModel returns a chat handle for the named model.
func (p *Provider) ChatModel(_ context.Context, uri core.ModelURI, tools []core.ToolDescriptor) (core.ChatModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "OpenAI API key is not configured")
	}
	return &providers.CompatChatModel{
		Client: p.client(),
		Model:  uri.ModelName,
		Tools:  tools,
	}, nil
}

// EmbeddingModel returns an embedding handle for the named model.
func (p *Provider) EmbeddingModel(_ context.Context, uri core.ModelURI) (core.EmbeddingModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "OpenAI API key is not configured")
	}
	return &providers.CompatEmbeddingModel{
		Client: p.client(),
		Model:  uri.ModelName,
	}, nil
}

// Describe returns the descriptor with live health state.
func (p *Provider) Describe() core.ProviderDescriptor {
	status := core.StatusUnavailable
	if p.Healthy(context.Background()) {
		status = core.StatusAvailable
	}
	return p.Base.Describe(status)
}
