// Package server exposes the gateway over HTTP: the streaming chat
// endpoint, the aggregated model catalog, provider administration and the
// agent, function and asset CRUD surfaces.
package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultBodySizeLimit bounds request bodies; attachments arrive inline.
const DefaultBodySizeLimit int64 = 32 << 20

// Config holds server options.
type Config struct {
	// MasterKey enables bearer authentication when non-empty.
	MasterKey string
	// MetricsEnabled exposes Prometheus metrics under /metrics.
	MetricsEnabled bool
	// BodySizeLimit is the max request body size in bytes.
	BodySizeLimit int64
}

// Server wraps the Echo server.
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// New builds the HTTP server around a handler.
func New(handler *Handler, cfg Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	bodyLimit := cfg.BodySizeLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodySizeLimit
	}
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodyLimit, 10)))

	if cfg.MasterKey != "" {
		e.Use(AuthMiddleware(cfg.MasterKey, []string{"/health", "/metrics"}))
	}

	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	api := e.Group("/api")

	api.POST("/chat", handler.Chat)

	api.GET("/models", handler.ListModels)

	api.GET("/providers", handler.ListProviders)
	api.POST("/providers/:id/config", handler.ConfigureProvider)

	api.GET("/agents", handler.ListAgents)
	api.POST("/agents", handler.CreateAgent)
	api.GET("/agents/:id", handler.GetAgent)
	api.PUT("/agents/:id", handler.UpdateAgent)
	api.DELETE("/agents/:id", handler.DeleteAgent)

	api.GET("/functions", handler.ListFunctions)
	api.POST("/functions", handler.CreateFunction)
	api.GET("/functions/:id", handler.GetFunction)
	api.PUT("/functions/:id", handler.UpdateFunction)
	api.DELETE("/functions/:id", handler.DeleteFunction)

	api.GET("/assets", handler.ListAssets)
	api.POST("/assets", handler.CreateAsset)
	api.GET("/assets/:id", handler.GetAsset)
	api.POST("/assets/:id", handler.UpdateAsset)
	api.DELETE("/assets/:id", handler.DeleteAsset)

	api.GET("/history/:session", handler.GetHistory)
	api.DELETE("/history/:session", handler.DeleteHistory)

	return &Server{echo: e, handler: handler}
}

// Start starts the HTTP server on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler, so the server works under httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
