// Package agents resolves chat targets. A target is either an agent URI
// pointing at a persisted persona or a bare model URI used directly.
package agents

import (
	"context"
	"strings"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/tools"
)

// ResolvedAgent is the fully loaded execution profile of one chat target:
// the base model to call, the persona, the retrieval assets to query and
// the callables to bind.
type ResolvedAgent struct {
	BaseModelURI string
	SystemPrompt string
	RagAssetIDs  []string
	Functions    []*tools.Callable
}

// Resolver loads agents and their function assets from storage.
type Resolver struct {
	agents    core.AgentStore
	functions core.FunctionStore
	registry  *tools.Registry
}

// NewResolver creates a resolver over the given stores.
func NewResolver(agents core.AgentStore, functions core.FunctionStore, registry *tools.Registry) *Resolver {
	return &Resolver{agents: agents, functions: functions, registry: registry}
}

// Resolve maps an identifier to an execution profile. Agent URIs are
// looked up and expanded; anything else must parse as a model URI and
// passes through with no persona, assets or functions.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*ResolvedAgent, error) {
	if !strings.HasPrefix(identifier, core.AgentURIPrefix) {
		if _, err := core.ParseModelURI(identifier); err != nil {
			return nil, err
		}
		return &ResolvedAgent{BaseModelURI: identifier}, nil
	}

	agent, err := r.agents.GetAgentByURI(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, core.NewAgentNotFoundError(identifier)
	}

	resolved := &ResolvedAgent{
		BaseModelURI: agent.BaseModelURI,
		SystemPrompt: agent.SystemPrompt,
		RagAssetIDs:  agent.RagAssetIDs,
	}

	for _, id := range agent.FunctionAssetIDs {
		fn, err := r.functions.GetFunction(ctx, id)
		if err != nil {
			return nil, err
		}
		if fn == nil {
			return nil, core.NewFunctionNotFoundError(id)
		}
		callable, err := r.registry.Resolve(fn.URI)
		if err != nil {
			return nil, err
		}
		resolved.Functions = append(resolved.Functions, callable)
	}

	return resolved, nil
}
