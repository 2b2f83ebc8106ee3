// Package httpclient is a centralized HTTP client factory with unified
// timeout configuration for all outbound provider traffic.
package httpclient

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

// ClientConfig holds the tunables for outbound HTTP clients.
type ClientConfig struct {
	// MaxIdleConns caps idle keep-alive connections across all hosts.
	MaxIdleConns int

	// MaxIdleConnsPerHost caps idle keep-alive connections per host.
	MaxIdleConnsPerHost int

	// IdleConnTimeout closes idle connections after this duration.
	IdleConnTimeout time.Duration

	// Timeout bounds the whole request, body read included. Model
	// generation can take minutes, so the default is deliberately long.
	Timeout time.Duration

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// KeepAlive sets the probe interval on active connections.
	KeepAlive time.Duration

	// TLSHandshakeTimeout bounds the TLS handshake.
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers, which is
	// the time-to-first-token on streaming calls.
	ResponseHeaderTimeout time.Duration
}

// getEnvDuration reads a duration override from the environment. Plain
// integers are interpreted as seconds; Go duration strings also work.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}

// DefaultConfig returns defaults suitable for LLM provider APIs. The two
// long timeouts can be overridden with HTTP_TIMEOUT and
// HTTP_RESPONSE_HEADER_TIMEOUT.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		Timeout:               getEnvDuration("HTTP_TIMEOUT", 600*time.Second),
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: getEnvDuration("HTTP_RESPONSE_HEADER_TIMEOUT", 600*time.Second),
	}
}

// NewHTTPClient builds an *http.Client from config. A nil config uses
// DefaultConfig.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}

// NewDefaultHTTPClient is shorthand for NewHTTPClient(nil).
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(nil)
}
