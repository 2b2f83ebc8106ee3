package providers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// DefaultModelWeight is the catalog weight of a provider that has not been
// reweighted by an administrator.
const DefaultModelWeight = 100

// BaseConfig describes the static identity of a provider.
type BaseConfig struct {
	ID                        string
	DisplayName               string
	CredentialKeyPrefix       string
	SupportsUserDefinedModels bool
	// Properties seeds the configurable fields, keyed by property name.
	Properties map[string]core.ProviderProperty
	// Settings persists administrative changes. Nil disables persistence.
	Settings *SettingsStore
}

type modelState struct {
	def         ModelDef
	selected    bool
	userDefined bool
}

// Base carries the behavior every provider shares: catalog bookkeeping,
// capability filtering, configuration state and credential masking.
// Providers embed it and add their transport.
type Base struct {
	mu         sync.RWMutex
	cfg        BaseConfig
	weight     int
	properties map[string]core.ProviderProperty
	models     []modelState
}

// NewBase builds the shared provider state: the embedded default catalog
// overlaid with whatever the settings store has persisted.
func NewBase(cfg BaseConfig) *Base {
	b := &Base{
		cfg:        cfg,
		weight:     DefaultModelWeight,
		properties: map[string]core.ProviderProperty{},
	}
	for k, v := range cfg.Properties {
		b.properties[k] = v
	}
	for _, def := range DefaultCatalog(cfg.ID) {
		b.models = append(b.models, modelState{def: def, selected: true})
	}

	if cfg.Settings != nil {
		if saved, err := cfg.Settings.Load(cfg.ID); err == nil {
			b.overlay(saved)
		}
	}
	return b
}

// overlay applies persisted settings on top of the defaults.
func (b *Base) overlay(saved ProviderSettings) {
	for k, v := range saved.Properties {
		if prop, ok := b.properties[k]; ok {
			prop.Value = v
			b.properties[k] = prop
		}
	}
	if saved.Weight != nil {
		b.weight = *saved.Weight
	}
	for _, name := range saved.CustomModels {
		b.models = append(b.models, modelState{def: ModelDef{Name: name}, selected: true, userDefined: true})
	}
	if saved.SelectedModels != nil {
		b.applySelection(saved.SelectedModels)
	}
}

func (b *Base) applySelection(selected []string) {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}
	for i := range b.models {
		b.models[i].selected = want[b.models[i].def.Name]
		delete(want, b.models[i].def.Name)
	}
	if b.cfg.SupportsUserDefinedModels {
		for name := range want {
			b.models = append(b.models, modelState{def: ModelDef{Name: name}, selected: true, userDefined: true})
		}
	}
}

// ID returns the provider's scheme identifier.
func (b *Base) ID() string {
	return b.cfg.ID
}

// CanHandle reports whether uri's scheme names this provider.
func (b *Base) CanHandle(uri string) bool {
	u, err := core.ParseModelURI(uri)
	if err != nil {
		return false
	}
	return u.Scheme == b.cfg.ID
}

// Property returns the current value of a configuration property.
func (b *Base) Property(key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.properties[key].Value
}

// Weight returns the provider's catalog weight.
func (b *Base) Weight() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.weight
}

// ListModels returns the selected catalog entries matching filter.
// The conversational filter is an exclusion: every model not tagged as an
// embedding model can hold a conversation.
func (b *Base) ListModels(filter core.Capability) []core.CatalogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := []core.CatalogEntry{}
	for _, m := range b.models {
		if !m.selected {
			continue
		}
		entry := core.CatalogEntry{
			ProviderID:   b.cfg.ID,
			BasemodelURI: b.cfg.ID + "://" + m.def.Name,
			Name:         m.def.Name,
			Ready:        true,
			Weight:       b.weight,
			Tags:         m.def.Tags,
		}
		if !matchesCapability(entry, filter) {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func matchesCapability(entry core.CatalogEntry, filter core.Capability) bool {
	switch filter {
	case "", core.CapabilityAll:
		return true
	case core.CapabilityConversational:
		return !entry.HasTag(core.CapabilityEmbedding)
	default:
		return entry.HasTag(filter)
	}
}

// maskCredential hides all but a short prefix of a secret value.
func maskCredential(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:3] + strings.Repeat("*", 4)
}

// Describe returns the provider descriptor with credential values masked.
// status is supplied by the concrete provider's health check.
func (b *Base) Describe(status core.ProviderStatus) core.ProviderDescriptor {
	b.mu.RLock()
	defer b.mu.RUnlock()

	props := make(map[string]core.ProviderProperty, len(b.properties))
	for k, p := range b.properties {
		if p.IsCredential {
			p.Value = maskCredential(p.Value)
		}
		props[k] = p
	}

	models := make([]core.ProviderModelInfo, 0, len(b.models))
	for _, m := range b.models {
		models = append(models, core.ProviderModelInfo{
			ID:            m.def.Name,
			Selected:      m.selected,
			IsUserDefined: m.userDefined,
			Tags:          m.def.Tags,
		})
	}

	return core.ProviderDescriptor{
		ID:                        b.cfg.ID,
		DisplayName:               b.cfg.DisplayName,
		CredentialKeyPrefix:       b.cfg.CredentialKeyPrefix,
		SupportsUserDefinedModels: b.cfg.SupportsUserDefinedModels,
		Status:                    status,
		Weight:                    b.weight,
		Properties:                props,
		Models:                    models,
	}
}

// ApplyConfiguration applies an administrative update and persists the
// resulting state. Unknown property keys are rejected.
func (b *Base) ApplyConfiguration(update core.ProviderConfigUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k, v := range update.Properties {
		prop, ok := b.properties[k]
		if !ok {
			return core.NewValidationError(fmt.Sprintf("unknown property %q for provider %s", k, b.cfg.ID), nil)
		}
		prop.Value = v
		b.properties[k] = prop
	}

	if update.Weight != nil {
		if *update.Weight < 0 {
			return core.NewValidationError("weight must not be negative", nil)
		}
		b.weight = *update.Weight
	}

	if update.SelectedModels != nil {
		b.applySelection(update.SelectedModels)
	}

	for capability, indexes := range update.CapabilityIndexes {
		for i := range b.models {
			b.models[i].def.Tags = removeTag(b.models[i].def.Tags, capability)
		}
		for _, idx := range indexes {
			if idx < 0 || idx >= len(b.models) {
				return core.NewValidationError(fmt.Sprintf("model index %d out of range", idx), nil)
			}
			b.models[idx].def.Tags = append(b.models[idx].def.Tags, capability)
		}
	}

	return b.persist()
}

func removeTag(tags []core.Capability, c core.Capability) []core.Capability {
	out := tags[:0]
	for _, t := range tags {
		if t != c {
			out = append(out, t)
		}
	}
	return out
}

// persist snapshots the mutable state into the settings store.
// Caller holds b.mu.
func (b *Base) persist() error {
	if b.cfg.Settings == nil {
		return nil
	}
	settings := ProviderSettings{
		Properties: map[string]string{},
		Weight:     &b.weight,
	}
	for k, p := range b.properties {
		settings.Properties[k] = p.Value
	}
	for _, m := range b.models {
		if m.selected {
			settings.SelectedModels = append(settings.SelectedModels, m.def.Name)
		}
		if m.userDefined {
			settings.CustomModels = append(settings.CustomModels, m.def.Name)
		}
	}
	return b.cfg.Settings.Save(b.cfg.ID, settings)
}
