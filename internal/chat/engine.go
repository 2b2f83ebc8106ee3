// Package chat runs complete chat turns: target resolution, retrieval,
// prompt assembly, model execution, tool dispatch and history persistence.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/YusakuNo1/AiFoundry/internal/agents"
	"github.com/YusakuNo1/AiFoundry/internal/assets"
	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/observability"
	"github.com/YusakuNo1/AiFoundry/internal/prompt"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
	"github.com/YusakuNo1/AiFoundry/internal/rag"
	"github.com/YusakuNo1/AiFoundry/internal/tools"
)

// toolResultSeparator joins inline model text and a dispatched tool result
// in one assistant message.
const toolResultSeparator = "<br /><br />"

// fallbackFailureText is shown when a failing turn carries no typed
// gateway error message.
const fallbackFailureText = "Sorry, something went wrong"

// TurnRequest is one user turn.
type TurnRequest struct {
	// AgentOrModel is an aif://agents/ URI or a bare model URI.
	AgentOrModel string
	// SessionID scopes conversation history.
	SessionID    string
	OutputFormat core.OutputFormat
	Text         string
	Attachments  []core.Attachment
}

// Engine orchestrates chat turns over the provider registry.
type Engine struct {
	resolver *agents.Resolver
	registry *providers.Registry
	assets   *assets.Manager
	history  core.HistoryStore
}

// NewEngine wires the engine's collaborators.
func NewEngine(resolver *agents.Resolver, registry *providers.Registry, assetManager *assets.Manager, history core.HistoryStore) *Engine {
	return &Engine{resolver: resolver, registry: registry, assets: assetManager, history: history}
}

// emitTracker distinguishes consumer write failures from model failures.
// A consumer that stops reading abandons the turn silently.
type emitTracker struct {
	fn  core.StreamFunc
	err error
}

func (e *emitTracker) emit(token string) error {
	if err := e.fn(token); err != nil {
		e.err = err
		return err
	}
	return nil
}

// Chat executes one turn, forwarding response text to emit as it becomes
// available. Failures after the consumer disconnected are abandoned;
// every other failure is reported to the consumer as a plain message and
// never persisted.
func (e *Engine) Chat(ctx context.Context, req TurnRequest, emit core.StreamFunc) error {
	if req.AgentOrModel == "" {
		return core.NewValidationError("chat target must not be empty", nil)
	}
	if req.SessionID == "" {
		return core.NewValidationError("session id must not be empty", nil)
	}

	tracker := &emitTracker{fn: emit}
	start := time.Now()

	providerID, reply, err := e.run(ctx, req, tracker)
	observability.ChatTurnDuration.WithLabelValues(providerID).Observe(time.Since(start).Seconds())

	if err != nil {
		if tracker.err != nil {
			slog.Warn("chat consumer disconnected, abandoning turn",
				"session", req.SessionID, "error", tracker.err)
			return tracker.err
		}
		errType := "internal"
		if ge, ok := core.AsGatewayError(err); ok {
			errType = string(ge.Type)
		}
		observability.ChatTurnFailures.WithLabelValues(providerID, errType).Inc()
		slog.Error("chat turn failed",
			"session", req.SessionID, "target", req.AgentOrModel, "error", err)
		_ = tracker.emit(failureText(err))
		return nil
	}

	if err := e.persistTurn(ctx, req, reply); err != nil {
		slog.Error("failed to persist chat turn", "session", req.SessionID, "error", err)
	}
	return nil
}

// run produces the full assistant reply, streaming it through tracker.
// It returns the provider id for instrumentation even when resolution
// fails partway.
func (e *Engine) run(ctx context.Context, req TurnRequest, tracker *emitTracker) (providerID, reply string, err error) {
	resolved, err := e.resolver.Resolve(ctx, req.AgentOrModel)
	if err != nil {
		return "", "", err
	}

	provider, uri, err := e.registry.Resolve(resolved.BaseModelURI)
	if err != nil {
		return "", "", err
	}
	providerID = provider.ID()

	binding, closeRetrievers, err := e.openBinding(ctx, resolved.RagAssetIDs)
	if err != nil {
		return providerID, "", err
	}
	defer closeRetrievers()

	history, err := e.history.GetHistory(ctx, req.SessionID)
	if err != nil {
		return providerID, "", err
	}

	messages := prompt.Build(prompt.Input{
		SystemPrompt: resolved.SystemPrompt,
		OutputFormat: req.OutputFormat,
		ContextSlots: binding.Slots(),
		History:      history,
		Text:         req.Text,
		Attachments:  req.Attachments,
	})
	values, err := binding.Resolve(ctx, req.Text)
	if err != nil {
		return providerID, "", err
	}
	messages = prompt.Interpolate(messages, values)

	descriptors := tools.BuildDescriptors(resolved.Functions, paramsKeyFor(providerID))
	model, err := provider.ChatModel(ctx, uri, descriptors)
	if err != nil {
		return providerID, "", err
	}

	strategy := core.StrategyFor(len(descriptors))
	observability.ChatTurns.WithLabelValues(providerID, string(strategy)).Inc()

	if strategy == core.StrategyStreaming {
		reply, err = e.runStreaming(ctx, model, messages, tracker)
		return providerID, reply, err
	}
	reply, err = e.runInvoke(ctx, model, messages, resolved.Functions, tracker)
	return providerID, reply, err
}

// runStreaming forwards tokens as they arrive and accumulates the full
// reply for persistence.
func (e *Engine) runStreaming(ctx context.Context, model core.ChatModel, messages []core.Message, tracker *emitTracker) (string, error) {
	var reply []byte
	err := model.Stream(ctx, messages, func(token string) error {
		reply = append(reply, token...)
		return tracker.emit(token)
	})
	if err != nil {
		return "", err
	}
	return string(reply), nil
}

// runInvoke issues a blocking call, dispatches the first tool decision and
// emits the combined reply in one chunk.
func (e *Engine) runInvoke(ctx context.Context, model core.ChatModel, messages []core.Message, bound []*tools.Callable, tracker *emitTracker) (string, error) {
	resp, err := model.Invoke(ctx, messages)
	if err != nil {
		return "", err
	}

	reply := resp.InlineText()
	result, dispatched, err := tools.Dispatch(ctx, bound, resp)
	if err != nil {
		return "", err
	}

	// The separator is a wire-only paragraph break; history stores the
	// plain concatenation.
	wire := reply
	if dispatched {
		observability.ToolDispatches.WithLabelValues(dispatchedToolName(resp)).Inc()
		if reply != "" {
			wire = reply + toolResultSeparator + result
			reply += result
		} else {
			wire = result
			reply = result
		}
	}

	if err := tracker.emit(wire); err != nil {
		return "", err
	}
	return reply, nil
}

func dispatchedToolName(resp *core.ModelResponse) string {
	if len(resp.ToolCalls) > 0 {
		return resp.ToolCalls[0].Name
	}
	if resp.FunctionCall != nil {
		return resp.FunctionCall.Name
	}
	return ""
}

// openBinding opens a retriever per retrieval asset and ties them to
// numbered context slots, in asset order.
func (e *Engine) openBinding(ctx context.Context, assetIDs []string) (*rag.Binding, func(), error) {
	if len(assetIDs) == 0 {
		return rag.NewBinding(nil, 0), func() {}, nil
	}

	opened := make([]*rag.VectorRetriever, 0, len(assetIDs))
	closeAll := func() {
		for _, r := range opened {
			_ = r.Close()
		}
	}

	retrievers := make([]core.Retriever, 0, len(assetIDs))
	for _, id := range assetIDs {
		r, err := e.assets.Retriever(ctx, id)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, r)
		retrievers = append(retrievers, r)
	}
	return rag.NewBinding(retrievers, 0), closeAll, nil
}

// persistTurn appends the user message and the assistant reply. History
// only grows on success, so failed turns never poison later prompts.
func (e *Engine) persistTurn(ctx context.Context, req TurnRequest, reply string) error {
	userMsg := core.ChatTurnMessage{
		Role:        core.RoleUser,
		Content:     req.Text,
		Attachments: req.Attachments,
	}
	if err := e.history.AppendMessage(ctx, req.SessionID, req.AgentOrModel, userMsg); err != nil {
		return err
	}
	assistantMsg := core.ChatTurnMessage{Role: core.RoleAssistant, Content: reply}
	return e.history.AppendMessage(ctx, req.SessionID, req.AgentOrModel, assistantMsg)
}

// paramsKeyFor picks the wire field name carrying tool parameter schemas.
// Anthropic's Messages API expects input_schema; every other surface uses
// the default parameters field.
func paramsKeyFor(providerID string) string {
	if providerID == "anthropic" {
		return "input_schema"
	}
	return ""
}

// requestErrorTypes are the failures caused by the request itself. Only
// their messages are shown to the user; upstream provider detail stays in
// the logs and metrics.
var requestErrorTypes = map[core.ErrorType]bool{
	core.ErrorTypeMalformedURI:       true,
	core.ErrorTypeProviderNotFound:   true,
	core.ErrorTypeModelUnavailable:   true,
	core.ErrorTypeModelNotReady:      true,
	core.ErrorTypeAgentNotFound:      true,
	core.ErrorTypeFunctionNotFound:   true,
	core.ErrorTypeToolNotFound:       true,
	core.ErrorTypeAssetNotFound:      true,
	core.ErrorTypeUnsupportedBackend: true,
	core.ErrorTypeValidation:         true,
}

// failureText converts a turn failure into the message shown to the user.
func failureText(err error) string {
	if ge, ok := core.AsGatewayError(err); ok && requestErrorTypes[ge.Type] && ge.Message != "" {
		return ge.Message
	}
	return fallbackFailureText
}
