package providers

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

func newTestBase(t *testing.T, settings *SettingsStore) *Base {
	t.Helper()
	return NewBase(BaseConfig{
		ID:                        "openai",
		DisplayName:               "OpenAI",
		CredentialKeyPrefix:       "sk-",
		SupportsUserDefinedModels: true,
		Properties: map[string]core.ProviderProperty{
			"api_key":  {Description: "API key", Value: "sk-test-1234567890", IsCredential: true},
			"base_url": {Description: "API base URL", Value: "https://api.openai.com/v1"},
		},
		Settings: settings,
	})
}

func entryNames(entries []core.CatalogEntry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestListModelsCapabilityFilter(t *testing.T) {
	base := newTestBase(t, nil)

	all := base.ListModels(core.CapabilityAll)
	require.NotEmpty(t, all)

	conversational := base.ListModels(core.CapabilityConversational)
	assert.NotEmpty(t, conversational)
	for _, e := range conversational {
		assert.False(t, e.HasTag(core.CapabilityEmbedding),
			"conversational filter must exclude embedding model %s", e.Name)
	}

	embedding := base.ListModels(core.CapabilityEmbedding)
	assert.NotEmpty(t, embedding)
	for _, e := range embedding {
		assert.True(t, e.HasTag(core.CapabilityEmbedding))
	}

	// Conversational plus embedding partition the full catalog.
	assert.Len(t, all, len(conversational)+len(embedding))

	for _, e := range base.ListModels(core.CapabilityVision) {
		assert.True(t, e.HasTag(core.CapabilityVision))
	}
}

func TestListModelsEntryShape(t *testing.T) {
	base := newTestBase(t, nil)

	entries := base.ListModels(core.CapabilityAll)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "openai", e.ProviderID)
		assert.Equal(t, "openai://"+e.Name, e.BasemodelURI)
		assert.True(t, e.Ready)
		assert.Equal(t, DefaultModelWeight, e.Weight)
	}
}

func TestApplyConfigurationRejectsUnknownProperty(t *testing.T) {
	base := newTestBase(t, nil)

	err := base.ApplyConfiguration(core.ProviderConfigUpdate{
		Properties: map[string]string{"no_such_property": "x"},
	})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))
}

func TestApplyConfigurationRejectsNegativeWeight(t *testing.T) {
	base := newTestBase(t, nil)

	weight := -5
	err := base.ApplyConfiguration(core.ProviderConfigUpdate{Weight: &weight})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))
	assert.Equal(t, DefaultModelWeight, base.Weight())
}

func TestApplyConfigurationRejectsOutOfRangeCapabilityIndex(t *testing.T) {
	base := newTestBase(t, nil)

	err := base.ApplyConfiguration(core.ProviderConfigUpdate{
		CapabilityIndexes: map[core.Capability][]int{
			core.CapabilityVision: {9999},
		},
	})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeValidation))
}

func TestApplyConfigurationPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewSettingsStore(path)

	base := newTestBase(t, store)
	weight := 250
	require.NoError(t, base.ApplyConfiguration(core.ProviderConfigUpdate{
		Properties: map[string]string{"api_key": "sk-replaced-key"},
		Weight:     &weight,
	}))

	// A fresh Base over the same store sees the persisted state.
	reloaded := newTestBase(t, store)
	assert.Equal(t, "sk-replaced-key", reloaded.Property("api_key"))
	assert.Equal(t, 250, reloaded.Weight())
}

func TestApplyConfigurationSelectionAddsUserDefinedModels(t *testing.T) {
	base := newTestBase(t, nil)

	require.NoError(t, base.ApplyConfiguration(core.ProviderConfigUpdate{
		SelectedModels: []string{"gpt-4o", "my-custom-model"},
	}))

	names := entryNames(base.ListModels(core.CapabilityAll))
	assert.Contains(t, names, "gpt-4o")
	assert.Contains(t, names, "my-custom-model")
	assert.NotContains(t, names, "gpt-4o-mini")
}

func TestDescribeMasksCredentials(t *testing.T) {
	base := newTestBase(t, nil)

	desc := base.Describe(core.StatusAvailable)
	assert.Equal(t, "openai", desc.ID)
	assert.Equal(t, core.StatusAvailable, desc.Status)

	key := desc.Properties["api_key"]
	assert.Equal(t, "sk-****", key.Value)

	// Non-credential properties stay readable.
	assert.Equal(t, "https://api.openai.com/v1", desc.Properties["base_url"].Value)
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "empty", value: "", want: ""},
		{name: "short", value: "abc", want: "****"},
		{name: "long", value: "sk-test-1234567890", want: "sk-****"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskCredential(tt.value))
		})
	}
}

func TestCanHandle(t *testing.T) {
	base := newTestBase(t, nil)

	assert.True(t, base.CanHandle("openai://gpt-4o"))
	assert.False(t, base.CanHandle("ollama://llama3"))
	assert.False(t, base.CanHandle("not-a-uri"))
}
