// Package azureopenai provides the Azure OpenAI provider for the gateway.
// Model names address deployments; the api-version URI parameter selects
// the API revision.
package azureopenai

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
	ProviderID = "azureopenai"

	defaultAPIVersion = "2024-02-01"

	propAPIKey   = "api_key"
	propEndpoint = "endpoint"
)

// Provider implements core.Provider for Azure OpenAI deployments.
type Provider struct {
	*providers.Base
	httpClient *http.Client
}

// New creates the Azure OpenAI provider. Credentials default to the
// AZURE_OPENAI_API_KEY and AZURE_OPENAI_ENDPOINT environment variables.
func New(settings *providers.SettingsStore) *Provider {
	base := providers.NewBase(providers.BaseConfig{
		ID:                        ProviderID,
		DisplayName:               "Azure OpenAI",
		CredentialKeyPrefix:       "",
		SupportsUserDefinedModels: true,
		Properties: map[string]core.ProviderProperty{
			propAPIKey: {
				Description:  "Azure OpenAI API key",
				Value:        os.Getenv("AZURE_OPENAI_API_KEY"),
				IsCredential: true,
			},
			propEndpoint: {
				Description: "Resource endpoint",
				Hint:        "https://<resource>.openai.azure.com",
				Value:       os.Getenv("AZURE_OPENAI_ENDPOINT"),
			},
		},
		Settings: settings,
	})
	return &Provider{Base: base, httpClient: httpclient.NewDefaultHTTPClient()}
}

// Healthy requires both the key and the resource endpoint.
func (p *Provider) Healthy(_ context.Context) bool {
	return p.Property(propAPIKey) != "" && p.Property(propEndpoint) != ""
}

// client scopes the base URL to one deployment. Azure routes by
// deployment path, not by a model field in the body.
func (p *Provider) client(deployment string) *llmclient.Client {
	baseURL := p.Property(propEndpoint) + "/openai/deployments/" + deployment
	return llmclient.NewWithHTTPClient(p.httpClient,
		llmclient.Config{ProviderName: ProviderID, BaseURL: baseURL},
		func(req *http.Request) {
			req.Header.Set("api-key", p.Property(propAPIKey))
		})
}

func apiVersion(uri core.ModelURI) string {
	if v := uri.APIVersion(); v != "" {
		return v
	}
	return defaultAPIVersion
}

// ChatModel returns a chat handle for the named deployment.
func (p *Provider) ChatModel(_ context.Context, uri core.ModelURI, tools []core.ToolDescriptor) (core.ChatModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "Azure OpenAI credentials are not configured")
	}
	return &providers.CompatChatModel{
		Client:   p.client(uri.ModelName),
		Endpoint: "/chat/completions?api-version=" + apiVersion(uri),
		Tools:    tools,
	}, nil
}

// EmbeddingModel returns an embedding handle for the named deployment.
func (p *Provider) EmbeddingModel(_ context.Context, uri core.ModelURI) (core.EmbeddingModel, error) {
	if !p.Healthy(context.Background()) {
		return nil, core.NewModelUnavailableError(ProviderID, "Azure OpenAI credentials are not configured")
	}
	return &providers.CompatEmbeddingModel{
		Client:   p.client(uri.ModelName),
		Endpoint: "/embeddings?api-version=" + apiVersion(uri),
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
