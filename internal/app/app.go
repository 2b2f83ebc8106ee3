// Package app wires the gateway components together and controls their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/YusakuNo1/AiFoundry/config"
	"github.com/YusakuNo1/AiFoundry/internal/agents"
	"github.com/YusakuNo1/AiFoundry/internal/assets"
	"github.com/YusakuNo1/AiFoundry/internal/cache"
	"github.com/YusakuNo1/AiFoundry/internal/chat"
	"github.com/YusakuNo1/AiFoundry/internal/providers"
	"github.com/YusakuNo1/AiFoundry/internal/providers/anthropic"
	"github.com/YusakuNo1/AiFoundry/internal/providers/azureopenai"
	"github.com/YusakuNo1/AiFoundry/internal/providers/bedrock"
	"github.com/YusakuNo1/AiFoundry/internal/providers/googlegemini"
	"github.com/YusakuNo1/AiFoundry/internal/providers/huggingface"
	"github.com/YusakuNo1/AiFoundry/internal/providers/ollama"
	"github.com/YusakuNo1/AiFoundry/internal/providers/openai"
	"github.com/YusakuNo1/AiFoundry/internal/server"
	"github.com/YusakuNo1/AiFoundry/internal/storage"
	"github.com/YusakuNo1/AiFoundry/internal/tools"
)

// App holds the initialized gateway components. Callers must call
// Shutdown to release resources.
type App struct {
	config *config.Config
	repo   storage.Repository
	server *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// New builds the full gateway from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := ensureDirs(cfg); err != nil {
		return nil, err
	}

	catalogCache, err := newCatalogCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog cache: %w", err)
	}

	settings := providers.NewSettingsStore(cfg.Settings.Path)

	// Registration order is the tie-break order for catalog aggregation.
	registry := providers.NewRegistry(catalogCache)
	registry.Register(openai.New(settings))
	registry.Register(azureopenai.New(settings))
	registry.Register(anthropic.New(settings))
	registry.Register(googlegemini.New(settings))
	registry.Register(ollama.New(settings))
	registry.Register(huggingface.New(settings))
	registry.Register(bedrock.New(settings))

	repo, err := storage.NewRepository(ctx, storage.Config{
		Type:   cfg.Storage.Type,
		SQLite: storage.SQLiteConfig{Path: cfg.Storage.SQLitePath},
		PostgreSQL: storage.PostgreSQLConfig{
			URL:      cfg.Storage.PostgresURL,
			MaxConns: cfg.Storage.PostgresMaxConns,
		},
		MongoDB: storage.MongoDBConfig{
			URL:      cfg.Storage.MongoURL,
			Database: cfg.Storage.MongoDatabase,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	callables := tools.NewRegistry()
	resolver := agents.NewResolver(repo, repo, callables)
	manager := assets.NewManager(repo, registry, cfg.Assets.Dir)
	engine := chat.NewEngine(resolver, registry, manager, repo)

	handler := server.NewHandler(engine, registry, manager, repo, callables)
	srv := server.New(handler, server.Config{
		MasterKey:      cfg.Server.MasterKey,
		MetricsEnabled: cfg.Server.MetricsEnabled,
		BodySizeLimit:  cfg.Server.BodySizeLimit,
	})

	app := &App{config: cfg, repo: repo, server: srv}
	app.logStartupInfo()
	return app, nil
}

// Start starts the HTTP server. Blocks until the server stops.
func (a *App) Start() error {
	addr := ":" + a.config.Server.Port
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server and closes storage. Idempotent.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application")

	var errs []error
	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage close: %w", err))
	}
	return errors.Join(errs...)
}

func newCatalogCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		return cache.NewRedisCache(cache.RedisConfig{
			URL: cfg.RedisURL,
			Key: cfg.RedisKey,
			TTL: cfg.RedisTTL,
		})
	default:
		return cache.NewLocalCache(cfg.LocalPath), nil
	}
}

func ensureDirs(cfg *config.Config) error {
	dirs := []string{
		cfg.Assets.Dir,
		filepath.Dir(cfg.Settings.Path),
		filepath.Dir(cfg.Cache.LocalPath),
	}
	if cfg.Storage.Type == storage.TypeSQLite {
		dirs = append(dirs, filepath.Dir(cfg.Storage.SQLitePath))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (a *App) logStartupInfo() {
	cfg := a.config

	if cfg.Server.MasterKey == "" {
		slog.Warn("AIFOUNDRY_MASTER_KEY not set, server accepts unauthenticated requests",
			"recommendation", "set AIFOUNDRY_MASTER_KEY to secure this gateway")
	} else {
		slog.Info("authentication enabled", "mode", "master_key")
	}

	if cfg.Server.MetricsEnabled {
		slog.Info("prometheus metrics enabled", "endpoint", "/metrics")
	}

	slog.Info("storage configured", "type", cfg.Storage.Type)
	slog.Info("catalog cache configured", "backend", cfg.Cache.Backend)
}
