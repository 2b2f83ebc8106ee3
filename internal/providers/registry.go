package providers

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/YusakuNo1/AiFoundry/internal/cache"
	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// Registry holds the configured providers in registration order and routes
// model URIs to them. Registration happens once at startup; lookups are
// read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	providers []core.Provider
	catalog   cache.Cache
}

// NewRegistry creates an empty registry. catalogCache may be nil to
// disable catalog snapshot persistence.
func NewRegistry(catalogCache cache.Cache) *Registry {
	return &Registry{catalog: catalogCache}
}

// Register appends a provider. Registration order is the tie-break order
// for catalog aggregation.
func (r *Registry) Register(p core.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
}

// Providers returns a snapshot of the registered providers.
func (r *Registry) Providers() []core.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Get returns the provider with the given id.
func (r *Registry) Get(id string) (core.Provider, error) {
	for _, p := range r.Providers() {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, core.NewProviderNotFoundError(id)
}

// Resolve parses uri and returns the provider claiming its scheme together
// with the parsed URI. Malformed URIs and unclaimed schemes are typed
// errors, never panics.
func (r *Registry) Resolve(uri string) (core.Provider, core.ModelURI, error) {
	parsed, err := core.ParseModelURI(uri)
	if err != nil {
		return nil, core.ModelURI{}, err
	}
	for _, p := range r.Providers() {
		if p.CanHandle(uri) {
			return p, parsed, nil
		}
	}
	return nil, core.ModelURI{}, core.NewProviderNotFoundError(uri)
}

// HealthMap probes every provider and returns id to health.
func (r *Registry) HealthMap(ctx context.Context) map[string]bool {
	out := map[string]bool{}
	for _, p := range r.Providers() {
		out[p.ID()] = p.Healthy(ctx)
	}
	return out
}

// AggregatedCatalog merges the catalogs of all healthy providers, filtered
// by capability. Unhealthy providers are skipped without failing the
// aggregation. Ordering is deterministic: weight descending, then provider
// id, then model name.
func (r *Registry) AggregatedCatalog(ctx context.Context, filter core.Capability) []core.CatalogEntry {
	entries := []core.CatalogEntry{}
	for _, p := range r.Providers() {
		if !p.Healthy(ctx) {
			slog.Debug("skipping unhealthy provider in catalog", "provider", p.ID())
			continue
		}
		entries = append(entries, p.ListModels(filter)...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		if entries[i].ProviderID != entries[j].ProviderID {
			return entries[i].ProviderID < entries[j].ProviderID
		}
		return entries[i].Name < entries[j].Name
	})

	if filter == core.CapabilityAll {
		// An aggregation with no healthy providers falls back to the last
		// snapshot instead of overwriting it with an empty catalog.
		if len(entries) == 0 {
			if cached := r.CachedCatalog(ctx); len(cached) > 0 {
				slog.Info("serving catalog from cached snapshot", "entries", len(cached))
				return cached
			}
			return entries
		}
		if r.catalog != nil {
			snapshot := &cache.CatalogSnapshot{Version: 1, UpdatedAt: time.Now().UTC(), Entries: entries}
			if err := r.catalog.Set(ctx, snapshot); err != nil {
				slog.Warn("failed to persist catalog snapshot", "error", err)
			}
		}
	}

	return entries
}

// CachedCatalog returns the last persisted catalog snapshot, or nil.
func (r *Registry) CachedCatalog(ctx context.Context) []core.CatalogEntry {
	if r.catalog == nil {
		return nil
	}
	snapshot, err := r.catalog.Get(ctx)
	if err != nil {
		slog.Warn("failed to load catalog snapshot", "error", err)
		return nil
	}
	if snapshot == nil {
		return nil
	}
	return snapshot.Entries
}

// Describe returns the descriptors of all providers with live health state.
func (r *Registry) Describe(ctx context.Context) []core.ProviderDescriptor {
	out := []core.ProviderDescriptor{}
	for _, p := range r.Providers() {
		out = append(out, p.Describe())
	}
	return out
}
