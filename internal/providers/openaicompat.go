package providers

import (
	"bufio"
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/pkg/llmclient"
)

// CompatChatModel speaks the OpenAI chat-completions wire dialect. It backs
// every provider exposing that surface: OpenAI itself, Azure OpenAI
// deployments and the Hugging Face router.
type CompatChatModel struct {
	Client *llmclient.Client
	// Endpoint is the chat path, default "/chat/completions". Azure
	// appends its api-version query here.
	Endpoint string
	// Model is the wire model name. Empty for Azure, where the deployment
	// is part of the base URL.
	Model string
	Tools []core.ToolDescriptor
}

func (m *CompatChatModel) endpoint() string {
	if m.Endpoint != "" {
		return m.Endpoint
	}
	return "/chat/completions"
}

// wireMessages converts messages to the chat-completions shape. Messages
// holding image parts become content-part lists; text-only messages stay
// plain strings.
func wireMessages(messages []core.Message) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, msg := range messages {
		hasImage := false
		for _, p := range msg.Parts {
			if p.Type == core.PartImage {
				hasImage = true
				break
			}
		}

		if !hasImage {
			out = append(out, map[string]any{"role": string(msg.Role), "content": msg.Text()})
			continue
		}

		parts := make([]map[string]any, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			switch p.Type {
			case core.PartImage:
				dataURL := "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
				parts = append(parts, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": dataURL},
				})
			case core.PartText:
				parts = append(parts, map[string]any{"type": "text", "text": p.Text})
			}
		}
		out = append(out, map[string]any{"role": string(msg.Role), "content": parts})
	}
	return out
}

func (m *CompatChatModel) body(messages []core.Message, stream bool) map[string]any {
	body := map[string]any{
		"messages": wireMessages(messages),
	}
	if m.Model != "" {
		body["model"] = m.Model
	}
	if stream {
		body["stream"] = true
	}
	if len(m.Tools) > 0 {
		// The legacy functions field keeps responses in the
		// additional-kwargs function_call shape.
		body["functions"] = m.Tools
	}
	return body
}

// Invoke issues a blocking chat call and normalizes the response.
func (m *CompatChatModel) Invoke(ctx context.Context, messages []core.Message) (*core.ModelResponse, error) {
	resp, err := m.Client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: m.endpoint(),
		Body:     m.body(messages, false),
	})
	if err != nil {
		return nil, err
	}
	return parseCompatResponse(resp.Body), nil
}

// parseCompatResponse normalizes a chat-completions response body. The
// modern tool_calls list and the legacy function_call shape are both
// recognized.
func parseCompatResponse(body []byte) *core.ModelResponse {
	out := &core.ModelResponse{}
	msg := gjson.GetBytes(body, "choices.0.message")

	if content := msg.Get("content"); content.Exists() && content.Type == gjson.String {
		out.Parts = append(out.Parts, content.String())
	}

	if calls := msg.Get("tool_calls"); calls.IsArray() {
		calls.ForEach(func(_, call gjson.Result) bool {
			name := call.Get("function.name").String()
			args := map[string]any{}
			if raw := call.Get("function.arguments").String(); raw != "" {
				if parsed, ok := gjson.Parse(raw).Value().(map[string]any); ok {
					args = parsed
				}
			}
			out.ToolCalls = append(out.ToolCalls, core.ToolCall{Name: name, Args: args})
			return true
		})
	}

	if fc := msg.Get("function_call"); fc.Exists() {
		out.FunctionCall = &core.LegacyFunctionCall{
			Name:      fc.Get("name").String(),
			Arguments: fc.Get("arguments").String(),
		}
	}

	return out
}

// Stream issues a streaming chat call, forwarding each content delta.
func (m *CompatChatModel) Stream(ctx context.Context, messages []core.Message, fn core.StreamFunc) error {
	rc, err := m.Client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: m.endpoint(),
		Body:     m.body(messages, true),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}
		token := gjson.Get(payload, "choices.0.delta.content")
		if !token.Exists() || token.Type != gjson.String || token.String() == "" {
			continue
		}
		if err := fn(token.String()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// CompatEmbeddingModel speaks the OpenAI embeddings wire dialect.
type CompatEmbeddingModel struct {
	Client   *llmclient.Client
	Endpoint string
	Model    string
}

func (m *CompatEmbeddingModel) endpoint() string {
	if m.Endpoint != "" {
		return m.Endpoint
	}
	return "/embeddings"
}

type compatEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedDocuments embeds texts in one batched call.
func (m *CompatEmbeddingModel) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	body := map[string]any{"input": texts}
	if m.Model != "" {
		body["model"] = m.Model
	}
	var resp compatEmbeddingResponse
	if err := m.Client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: m.endpoint(),
		Body:     body,
	}, &resp); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, d.Embedding)
	}
	return out, nil
}

// EmbedQuery embeds a single query string.
func (m *CompatEmbeddingModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, core.NewProviderError("", "embeddings response contained no vectors", nil)
	}
	return vecs[0], nil
}
