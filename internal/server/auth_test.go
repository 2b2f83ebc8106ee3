package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t, Config{MasterKey: "top-secret"})

	do := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	t.Run("health is open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do("/health", "").Code)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := do("/api/models", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing authorization header")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := do("/api/models", "Basic dXNlcjpwYXNz")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := do("/api/models", "Bearer not-the-key")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid master key")
	})

	t.Run("valid key", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, do("/api/models", "Bearer top-secret").Code)
	})
}

func TestAuthDisabledWithoutMasterKey(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
