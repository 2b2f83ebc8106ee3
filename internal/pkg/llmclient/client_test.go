package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

func newTestClient(baseURL string) *Client {
	return New(Config{ProviderName: "testprovider", BaseURL: baseURL}, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer test-key")
	})
}

func TestDo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "hello", body["input"])
			_, _ = w.Write([]byte(`{"output":"world"}`))
		}))
		defer srv.Close()

		var result struct {
			Output string `json:"output"`
		}
		err := newTestClient(srv.URL).Do(context.Background(), Request{
			Method:   http.MethodPost,
			Endpoint: "/v1/test",
			Body:     map[string]string{"input": "hello"},
		}, &result)
		require.NoError(t, err)
		assert.Equal(t, "world", result.Output)
	})

	t.Run("UpstreamErrorMessage", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/v1/models"}, nil)
		require.Error(t, err)
		ge, ok := core.AsGatewayError(err)
		require.True(t, ok)
		assert.Equal(t, core.ErrorTypeProvider, ge.Type)
		assert.Equal(t, "testprovider", ge.Provider)
		assert.Contains(t, ge.Message, "invalid api key")
	})

	t.Run("FlatErrorBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited"}`))
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/"}, nil)
		require.Error(t, err)
		ge, _ := core.AsGatewayError(err)
		require.NotNil(t, ge)
		assert.Contains(t, ge.Message, "rate limited")
	})

	t.Run("NoRetryOnServerError", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Endpoint: "/"}, nil)
		require.Error(t, err)
		assert.Equal(t, 1, calls, "failed requests must not be repeated")
	})
}

func TestDoStream(t *testing.T) {
	t.Run("HandsBodyToCaller", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("data: chunk\n\n"))
		}))
		defer srv.Close()

		rc, err := newTestClient(srv.URL).DoStream(context.Background(), Request{Method: http.MethodPost, Endpoint: "/v1/chat"})
		require.NoError(t, err)
		defer rc.Close()

		buf := make([]byte, 64)
		n, _ := rc.Read(buf)
		assert.Contains(t, string(buf[:n]), "data: chunk")
	})

	t.Run("ErrorStatus", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"overloaded"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).DoStream(context.Background(), Request{Method: http.MethodPost, Endpoint: "/v1/chat"})
		require.Error(t, err)
		ge, _ := core.AsGatewayError(err)
		require.NotNil(t, ge)
		assert.Contains(t, ge.Message, "overloaded")
	})
}

func TestRequestHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-02-01", r.Header.Get("Api-Version"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Do(context.Background(), Request{
		Method:   http.MethodGet,
		Endpoint: "/",
		Headers:  map[string]string{"Api-Version": "2024-02-01"},
	}, nil)
	require.NoError(t, err)
}
