// Package config loads the gateway configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends for the aggregated catalog snapshot.
const (
	CacheBackendLocal = "local"
	CacheBackendRedis = "redis"
)

// Config holds the full gateway configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Cache    CacheConfig
	Assets   AssetsConfig
	Settings SettingsConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server options.
type ServerConfig struct {
	// Port the server listens on.
	Port string
	// MasterKey enables bearer authentication when non-empty.
	MasterKey string
	// MetricsEnabled exposes Prometheus metrics under /metrics.
	MetricsEnabled bool
	// BodySizeLimit bounds request bodies in bytes; attachments arrive inline.
	BodySizeLimit int64
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Type is "sqlite", "postgresql" or "mongodb".
	Type string
	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string
	// PostgresURL is the connection string for the postgresql backend.
	PostgresURL string
	// PostgresMaxConns is the connection pool size.
	PostgresMaxConns int
	// MongoURL is the connection string for the mongodb backend.
	MongoURL string
	// MongoDatabase is the database name.
	MongoDatabase string
}

// CacheConfig configures the catalog snapshot cache.
type CacheConfig struct {
	// Backend is "local" or "redis".
	Backend string
	// LocalPath is the snapshot file path for the local backend.
	LocalPath string
	// RedisURL is the connection URL for the redis backend.
	RedisURL string
	// RedisKey overrides the snapshot key.
	RedisKey string
	// RedisTTL overrides the snapshot time-to-live.
	RedisTTL time.Duration
}

// AssetsConfig configures embedding asset storage.
type AssetsConfig struct {
	// Dir is the directory holding per-asset vector index files.
	Dir string
}

// SettingsConfig configures provider settings persistence.
type SettingsConfig struct {
	// Path is the JSON file holding per-provider overrides.
	Path string
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string
	// Format is "pretty" for colorized development output or "json".
	Format string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("BODY_SIZE_LIMIT", int64(32<<20))

	v.SetDefault("STORAGE_TYPE", "sqlite")
	v.SetDefault("SQLITE_PATH", "data/aifoundry.db")
	v.SetDefault("POSTGRES_MAX_CONNS", 10)
	v.SetDefault("MONGODB_DATABASE", "aifoundry")

	v.SetDefault("CACHE_BACKEND", CacheBackendLocal)
	v.SetDefault("CATALOG_CACHE_PATH", "data/catalog.json")
	v.SetDefault("REDIS_TTL", 24*time.Hour)

	v.SetDefault("ASSETS_DIR", "data/assets")
	v.SetDefault("PROVIDER_SETTINGS_PATH", "data/providers.json")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "pretty")

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			MasterKey:      v.GetString("AIFOUNDRY_MASTER_KEY"),
			MetricsEnabled: v.GetBool("METRICS_ENABLED"),
			BodySizeLimit:  v.GetInt64("BODY_SIZE_LIMIT"),
		},
		Storage: StorageConfig{
			Type:             v.GetString("STORAGE_TYPE"),
			SQLitePath:       v.GetString("SQLITE_PATH"),
			PostgresURL:      v.GetString("POSTGRES_URL"),
			PostgresMaxConns: v.GetInt("POSTGRES_MAX_CONNS"),
			MongoURL:         v.GetString("MONGODB_URL"),
			MongoDatabase:    v.GetString("MONGODB_DATABASE"),
		},
		Cache: CacheConfig{
			Backend:   v.GetString("CACHE_BACKEND"),
			LocalPath: v.GetString("CATALOG_CACHE_PATH"),
			RedisURL:  v.GetString("REDIS_URL"),
			RedisKey:  v.GetString("REDIS_KEY"),
			RedisTTL:  v.GetDuration("REDIS_TTL"),
		},
		Assets: AssetsConfig{
			Dir: v.GetString("ASSETS_DIR"),
		},
		Settings: SettingsConfig{
			Path: v.GetString("PROVIDER_SETTINGS_PATH"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Type {
	case "sqlite", "postgresql", "mongodb":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.Storage.Type == "postgresql" && c.Storage.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL is required for postgresql storage")
	}
	if c.Storage.Type == "mongodb" && c.Storage.MongoURL == "" {
		return fmt.Errorf("MONGODB_URL is required for mongodb storage")
	}

	switch c.Cache.Backend {
	case CacheBackendLocal, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required for the redis cache backend")
	}
	return nil
}
