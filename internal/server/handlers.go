package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/YusakuNo1/AiFoundry/internal/assets"
	"github.com/YusakuNo1/AiFoundry/internal/chat"
	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
	"github.com/YusakuNo1/AiFoundry/internal/storage"
	"github.com/YusakuNo1/AiFoundry/internal/tools"
)

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	engine    *chat.Engine
	registry  *providers.Registry
	assets    *assets.Manager
	repo      storage.Repository
	callables *tools.Registry
}

// NewHandler wires the handler.
func NewHandler(engine *chat.Engine, registry *providers.Registry, assetManager *assets.Manager, repo storage.Repository, callables *tools.Registry) *Handler {
	return &Handler{
		engine:    engine,
		registry:  registry,
		assets:    assetManager,
		repo:      repo,
		callables: callables,
	}
}

// Health handles GET /health.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": h.registry.HealthMap(c.Request().Context()),
	})
}

type chatRequest struct {
	AgentOrModel string            `json:"agent_or_model"`
	SessionID    string            `json:"session_id"`
	OutputFormat core.OutputFormat `json:"output_format,omitempty"`
	Input        string            `json:"input"`
	Attachments  []core.Attachment `json:"attachments,omitempty"`
}

// Chat handles POST /api/chat. The response body is a chunked text
// stream; each flushed chunk is one piece of assistant output.
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	resp.Header().Set("Cache-Control", "no-cache")

	started := false
	emit := func(token string) error {
		if !started {
			resp.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := resp.Write([]byte(token)); err != nil {
			return err
		}
		resp.Flush()
		return nil
	}

	err := h.engine.Chat(c.Request().Context(), chat.TurnRequest{
		AgentOrModel: req.AgentOrModel,
		SessionID:    req.SessionID,
		OutputFormat: req.OutputFormat,
		Text:         req.Input,
		Attachments:  req.Attachments,
	}, emit)
	if err != nil && !started {
		return handleError(c, err)
	}
	return nil
}

// ListModels handles GET /api/models. The capability query parameter
// filters the aggregated catalog; it defaults to every model.
func (h *Handler) ListModels(c echo.Context) error {
	filter := core.Capability(c.QueryParam("capability"))
	if filter == "" {
		filter = core.CapabilityAll
	}
	entries := h.registry.AggregatedCatalog(c.Request().Context(), filter)
	return c.JSON(http.StatusOK, map[string]any{"models": entries})
}

// ListProviders handles GET /api/providers.
func (h *Handler) ListProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"providers": h.registry.Describe(c.Request().Context()),
	})
}

// ConfigureProvider handles POST /api/providers/:id/config.
func (h *Handler) ConfigureProvider(c echo.Context) error {
	provider, err := h.registry.Get(c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}

	var update core.ProviderConfigUpdate
	if err := c.Bind(&update); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}
	if err := provider.ApplyConfiguration(update); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, provider.Describe())
}

// ListAgents handles GET /api/agents.
func (h *Handler) ListAgents(c echo.Context) error {
	agents, err := h.repo.ListAgents(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"agents": agents})
}

// CreateAgent handles POST /api/agents.
func (h *Handler) CreateAgent(c echo.Context) error {
	var agent core.AgentDescriptor
	if err := c.Bind(&agent); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}
	if strings.TrimSpace(agent.Name) == "" {
		return handleError(c, core.NewValidationError("agent name must not be empty", nil))
	}
	if _, err := core.ParseModelURI(agent.BaseModelURI); err != nil {
		return handleError(c, err)
	}

	agent.ID = uuid.NewString()
	agent.AgentURI = core.AgentURIPrefix + agent.ID
	if err := h.repo.SaveAgent(c.Request().Context(), &agent); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, agent)
}

// GetAgent handles GET /api/agents/:id.
func (h *Handler) GetAgent(c echo.Context) error {
	agent, err := h.repo.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, agent)
}

// UpdateAgent handles PUT /api/agents/:id. Absent fields keep their
// current values.
func (h *Handler) UpdateAgent(c echo.Context) error {
	var update core.AgentUpdate
	if err := c.Bind(&update); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}
	if update.BaseModelURI != nil {
		if _, err := core.ParseModelURI(*update.BaseModelURI); err != nil {
			return handleError(c, err)
		}
	}
	agent, err := h.repo.UpdateAgent(c.Request().Context(), c.Param("id"), update)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, agent)
}

// DeleteAgent handles DELETE /api/agents/:id.
func (h *Handler) DeleteAgent(c echo.Context) error {
	if err := h.repo.DeleteAgent(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFunctions handles GET /api/functions.
func (h *Handler) ListFunctions(c echo.Context) error {
	functions, err := h.repo.ListFunctions(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"functions": functions})
}

type createFunctionRequest struct {
	Name     string `json:"name"`
	Path     string `json:"functions_path"`
	FuncName string `json:"functions_name"`
}

// CreateFunction handles POST /api/functions. The referenced callable
// must exist in the local registry.
func (h *Handler) CreateFunction(c echo.Context) error {
	var req createFunctionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}
	if req.Path == "" || req.FuncName == "" {
		return handleError(c, core.NewValidationError("functions_path and functions_name must not be empty", nil))
	}

	uri := functionURI(req.Path, req.FuncName)
	if _, err := h.callables.Resolve(uri); err != nil {
		return handleError(c, err)
	}

	fn := &core.FunctionAsset{
		ID:       uuid.NewString(),
		URI:      uri,
		Name:     req.Name,
		Path:     req.Path,
		FuncName: req.FuncName,
	}
	if err := h.repo.SaveFunction(c.Request().Context(), fn); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, fn)
}

type updateFunctionRequest struct {
	Name     *string `json:"name"`
	Path     *string `json:"functions_path"`
	FuncName *string `json:"functions_name"`
}

// UpdateFunction handles PUT /api/functions/:id. Absent fields keep their
// current values; the resulting target is re-validated against the local
// registry before the record is saved.
func (h *Handler) UpdateFunction(c echo.Context) error {
	fn, err := h.repo.GetFunction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}

	var req updateFunctionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}
	if req.Name != nil {
		fn.Name = *req.Name
	}
	if req.Path != nil {
		fn.Path = *req.Path
	}
	if req.FuncName != nil {
		fn.FuncName = *req.FuncName
	}
	if fn.Path == "" || fn.FuncName == "" {
		return handleError(c, core.NewValidationError("functions_path and functions_name must not be empty", nil))
	}

	fn.URI = functionURI(fn.Path, fn.FuncName)
	if _, err := h.callables.Resolve(fn.URI); err != nil {
		return handleError(c, err)
	}
	if err := h.repo.SaveFunction(c.Request().Context(), fn); err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, fn)
}

// functionURI builds the local function URI from a dotted module path and a
// function name.
func functionURI(path, funcName string) string {
	return tools.FunctionURIPrefix + strings.ReplaceAll(path, ".", "/") + "/" + funcName
}

// GetFunction handles GET /api/functions/:id.
func (h *Handler) GetFunction(c echo.Context) error {
	fn, err := h.repo.GetFunction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, fn)
}

// DeleteFunction handles DELETE /api/functions/:id.
func (h *Handler) DeleteFunction(c echo.Context) error {
	if err := h.repo.DeleteFunction(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAssets handles GET /api/assets.
func (h *Handler) ListAssets(c echo.Context) error {
	metas, err := h.assets.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"assets": metas})
}

// CreateAsset handles POST /api/assets.
func (h *Handler) CreateAsset(c echo.Context) error {
	var req assets.CreateRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}
	meta, err := h.assets.Create(c.Request().Context(), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, meta)
}

// GetAsset handles GET /api/assets/:id.
func (h *Handler) GetAsset(c echo.Context) error {
	meta, err := h.assets.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, meta)
}

// UpdateAsset handles POST /api/assets/:id. Contents are appended to the
// existing index; a name renames the asset.
func (h *Handler) UpdateAsset(c echo.Context) error {
	var req assets.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("invalid request body: "+err.Error(), err))
	}
	meta, err := h.assets.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, meta)
}

// DeleteAsset handles DELETE /api/assets/:id.
func (h *Handler) DeleteAsset(c echo.Context) error {
	if err := h.assets.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetHistory handles GET /api/history/:session.
func (h *Handler) GetHistory(c echo.Context) error {
	messages, err := h.repo.GetHistory(c.Request().Context(), c.Param("session"))
	if err != nil {
		return handleError(c, err)
	}
	if messages == nil {
		messages = []core.ChatTurnMessage{}
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}

// DeleteHistory handles DELETE /api/history/:session.
func (h *Handler) DeleteHistory(c echo.Context) error {
	if err := h.repo.DeleteHistory(c.Request().Context(), c.Param("session")); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleError maps gateway errors to HTTP statuses; anything untyped is a
// 500 with a generic body.
func handleError(c echo.Context, err error) error {
	if ge, ok := core.AsGatewayError(err); ok {
		return c.JSON(ge.HTTPStatusCode(), map[string]any{
			"error": map[string]any{
				"type":    string(ge.Type),
				"message": ge.Message,
			},
		})
	}
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"error": map[string]any{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
