// Package llmclient is the JSON-over-HTTP base client shared by the
// OpenAI-compatible providers. It handles request marshaling, response
// unmarshaling and standardized provider error parsing. Failures surface
// immediately; the caller decides whether a turn is worth repeating.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/YusakuNo1/AiFoundry/internal/core"
	"github.com/YusakuNo1/AiFoundry/internal/pkg/httpclient"
)

// Config holds the client configuration.
type Config struct {
	// ProviderName identifies the provider in error messages and logs.
	ProviderName string

	// BaseURL is the API base URL, no trailing slash.
	BaseURL string
}

// HeaderSetter applies provider-specific headers, typically authentication.
type HeaderSetter func(req *http.Request)

// Client is the base HTTP client.
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a client with the default HTTP transport.
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, headerSetter)
}

// NewWithHTTPClient creates a client with a custom *http.Client.
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// SetBaseURL updates the base URL.
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request describes one HTTP request.
type Request struct {
	Method   string
	Endpoint string
	Body     interface{} // JSON marshaled when not nil
	Headers  map[string]string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Do executes a request and unmarshals the response body into result.
func (c *Client) Do(ctx context.Context, req Request, result interface{}) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return core.NewProviderError(c.config.ProviderName, "failed to unmarshal response: "+err.Error(), err)
		}
	}

	return nil
}

// DoRaw executes a request and returns the raw response. Non-200 statuses
// become provider errors with the upstream message extracted.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, "failed to read response: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp.StatusCode, body)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// DoStream executes a streaming request and hands the body to the caller.
// The caller owns closing the returned ReadCloser.
func (c *Client) DoStream(ctx context.Context, req Request) (io.ReadCloser, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewProviderError(c.config.ProviderName, "failed to send request: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close()
		return nil, c.parseError(resp.StatusCode, respBody)
	}

	return resp.Body, nil
}

// buildRequest assembles the *http.Request, applying the header setter and
// per-request headers in that order.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewValidationError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, core.NewValidationError("failed to create request", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// parseError extracts the upstream error message. OpenAI-style bodies carry
// {"error": {"message": ...}}; some compatible servers flatten it to
// {"error": "..."} or {"message": "..."}.
func (c *Client) parseError(statusCode int, body []byte) *core.GatewayError {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		if v := gjson.GetBytes(body, "error"); v.Type == gjson.String {
			msg = v.String()
		}
	}
	if msg == "" {
		msg = gjson.GetBytes(body, "message").String()
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return core.NewProviderError(c.config.ProviderName, fmt.Sprintf("upstream returned %d: %s", statusCode, msg), nil)
}
