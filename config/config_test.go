package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Empty(t, cfg.Server.MasterKey)
	assert.True(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, int64(32<<20), cfg.Server.BodySizeLimit)

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "data/aifoundry.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 10, cfg.Storage.PostgresMaxConns)

	assert.Equal(t, CacheBackendLocal, cfg.Cache.Backend)
	assert.Equal(t, "data/catalog.json", cfg.Cache.LocalPath)
	assert.Equal(t, 24*time.Hour, cfg.Cache.RedisTTL)

	assert.Equal(t, "data/assets", cfg.Assets.Dir)
	assert.Equal(t, "data/providers.json", cfg.Settings.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AIFOUNDRY_MASTER_KEY", "sk-master")
	t.Setenv("STORAGE_TYPE", "postgresql")
	t.Setenv("POSTGRES_URL", "postgres://gateway:pw@localhost/aifoundry")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sk-master", cfg.Server.MasterKey)
	assert.Equal(t, "postgresql", cfg.Storage.Type)
	assert.Equal(t, "postgres://gateway:pw@localhost/aifoundry", cfg.Storage.PostgresURL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown storage type",
			env:  map[string]string{"STORAGE_TYPE": "dynamodb"},
			want: "unknown storage type",
		},
		{
			name: "postgresql without URL",
			env:  map[string]string{"STORAGE_TYPE": "postgresql"},
			want: "POSTGRES_URL is required",
		},
		{
			name: "mongodb without URL",
			env:  map[string]string{"STORAGE_TYPE": "mongodb"},
			want: "MONGODB_URL is required",
		},
		{
			name: "unknown cache backend",
			env:  map[string]string{"CACHE_BACKEND": "memcached"},
			want: "unknown cache backend",
		},
		{
			name: "redis cache without URL",
			env:  map[string]string{"CACHE_BACKEND": "redis"},
			want: "REDIS_URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
