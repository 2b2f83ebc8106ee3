// Package huggingface provides the Hugging Face provider for the gateway,
// speaking the OpenAI-compatible router surface.
package huggingface

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
	ProviderID = "huggingface"

	defaultBaseURL = "https://router.huggingface.co/v1"

	propAPIKey  = "api_key"
	propBaseURL = "base_url"
)

// Provider implements core.Provider for Hugging Face hosted models.
type Provider struct {
	*providers.Base
	httpClient *http.Client
}

// New creates the Hugging Face provider. The token defaults to the
// HUGGINGFACEHUB_API_TOKEN environment variable.
func New(settings *providers.SettingsStore) *Provider {
	base := providers.NewBase(providers.BaseConfig{
		ID:                        ProviderID,
		DisplayName:               "Hugging Face",
		CredentialKeyPrefix:       "hf_",
		SupportsUserDefinedModels: true,
		Properties: map[string]core.ProviderProperty{
			propAPIKey: {
				Description:  "Hugging Face access token",
				Hint:         "hf_...",
				Value:        os.Getenv("HUGGINGFACEHUB_API_TOKEN"),
				IsCredential: true,
			},
			propBaseURL: {
				Description: "Router base URL",
				Value:       defaultBaseURL,
			},
		},
		Settings: settings,
	})
	return &Provider{Base: base, httpClient: httpclient.NewDefaultHTTPClient()}
}

// Healthy reports token presence.
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
		return nil, core.NewModelUnavailableError(ProviderID, "Hugging Face access token is not configured")
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
		return nil, core.NewModelUnavailableError(ProviderID, "Hugging Face access token is not configured")
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
