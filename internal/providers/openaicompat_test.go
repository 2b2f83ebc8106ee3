package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/pkg/llmclient"
)

func compatClient(serverURL string) *llmclient.Client {
	return llmclient.New(llmclient.Config{ProviderName: "test", BaseURL: serverURL}, nil)
}

func TestParseCompatResponseText(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)

	resp := parseCompatResponse(body)
	assert.Equal(t, []string{"hello there"}, resp.Parts)
	assert.Empty(t, resp.ToolCalls)
	assert.Nil(t, resp.FunctionCall)
	assert.False(t, resp.HasToolDecision())
}

func TestParseCompatResponseToolCalls(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":null,"tool_calls":[
		{"function":{"name":"get_current_weather","arguments":"{\"city\":\"Seattle\"}"}},
		{"function":{"name":"second_tool","arguments":"{}"}}
	]}}]}`)

	resp := parseCompatResponse(body)
	assert.Empty(t, resp.Parts)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "get_current_weather", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"city": "Seattle"}, resp.ToolCalls[0].Args)
	assert.True(t, resp.HasToolDecision())
}

func TestParseCompatResponseLegacyFunctionCall(t *testing.T) {
	body := []byte(`{"choices":[{"message":{"content":null,"function_call":
		{"name":"get_current_weather","arguments":"{\"city\":\"Kirkland\"}"}}}]}`)

	resp := parseCompatResponse(body)
	require.NotNil(t, resp.FunctionCall)
	assert.Equal(t, "get_current_weather", resp.FunctionCall.Name)
	assert.Equal(t, `{"city":"Kirkland"}`, resp.FunctionCall.Arguments)
	assert.True(t, resp.HasToolDecision())
}

func TestWireMessagesTextOnly(t *testing.T) {
	msgs := wireMessages([]core.Message{
		core.TextMessage(core.RoleSystem, "be brief"),
		core.TextMessage(core.RoleUser, "hi"),
	})

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0]["role"])
	assert.Equal(t, "be brief", msgs[0]["content"])
	assert.Equal(t, "hi", msgs[1]["content"])
}

func TestWireMessagesImagesBecomeContentParts(t *testing.T) {
	msg := core.Message{
		Role: core.RoleUser,
		Parts: []core.ContentPart{
			{Type: core.PartImage, MIMEType: "image/png", Data: []byte{1, 2, 3}},
			{Type: core.PartText, Text: "what is this"},
		},
	}

	msgs := wireMessages([]core.Message{msg})
	require.Len(t, msgs, 1)

	parts, ok := msgs[0]["content"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[0]["type"])
	imageURL := parts[0]["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,AQID", imageURL["url"])
	assert.Equal(t, "text", parts[1]["type"])
}

func TestCompatChatModelInvokeSendsLegacyFunctions(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
	}))
	defer server.Close()

	model := &CompatChatModel{
		Client: compatClient(server.URL),
		Model:  "gpt-4o",
		Tools: []core.ToolDescriptor{{
			Name:        "get_current_weather",
			Description: "Returns the weather",
		}},
	}

	resp, err := model.Invoke(context.Background(), []core.Message{core.TextMessage(core.RoleUser, "hi")})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.InlineText())

	assert.Equal(t, "gpt-4o", gotBody["model"])
	assert.NotContains(t, gotBody, "stream")
	// Bound tools travel in the legacy functions field.
	assert.Contains(t, gotBody, "functions")
	assert.NotContains(t, gotBody, "tools")
}

func TestCompatChatModelStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
				": keep-alive comment\n" +
				"data: {\"choices\":[{\"delta\":{}}]}\n\n" +
				"data: [DONE]\n\n"))
	}))
	defer server.Close()

	model := &CompatChatModel{Client: compatClient(server.URL)}

	var tokens []string
	err := model.Stream(context.Background(), []core.Message{core.TextMessage(core.RoleUser, "hi")},
		func(token string) error {
			tokens = append(tokens, token)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, tokens)
}

func TestCompatChatModelStreamStopsOnCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n"))
	}))
	defer server.Close()

	model := &CompatChatModel{Client: compatClient(server.URL)}

	calls := 0
	err := model.Stream(context.Background(), nil, func(string) error {
		calls++
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCompatEmbeddingModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var body map[string]any
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "text-embedding-3-small", body["model"])
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]},{"embedding":[0.3,0.4]}]}`))
	}))
	defer server.Close()

	model := &CompatEmbeddingModel{Client: compatClient(server.URL), Model: "text-embedding-3-small"}

	vecs, err := model.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vecs[0])

	vec, err := model.EmbedQuery(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestCompatChatModelUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad api key"}}`))
	}))
	defer server.Close()

	model := &CompatChatModel{Client: compatClient(server.URL)}

	_, err := model.Invoke(context.Background(), []core.Message{core.TextMessage(core.RoleUser, "hi")})
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeProvider))
	assert.Contains(t, err.Error(), "bad api key")
}
