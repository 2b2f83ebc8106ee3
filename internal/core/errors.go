// Package core defines the shared types, contracts and error taxonomy for
// the AiFoundry gateway.
package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies a gateway error.
type ErrorType string

const (
	// ErrorTypeMalformedURI indicates a model URI without a scheme separator.
	ErrorTypeMalformedURI ErrorType = "malformed_uri"
	// ErrorTypeProviderNotFound indicates no registered provider handles the URI.
	ErrorTypeProviderNotFound ErrorType = "provider_not_found"
	// ErrorTypeModelUnavailable indicates missing provider credentials.
	ErrorTypeModelUnavailable ErrorType = "model_unavailable"
	// ErrorTypeModelNotReady indicates a local model absent after one fetch attempt.
	ErrorTypeModelNotReady ErrorType = "model_not_ready"
	// ErrorTypeAgentNotFound indicates an unknown agent URI.
	ErrorTypeAgentNotFound ErrorType = "agent_not_found"
	// ErrorTypeFunctionNotFound indicates a missing function asset or callable.
	ErrorTypeFunctionNotFound ErrorType = "function_not_found"
	// ErrorTypeToolNotFound indicates a tool call naming no bound callable.
	ErrorTypeToolNotFound ErrorType = "tool_not_found"
	// ErrorTypeAssetNotFound indicates a missing embedding asset.
	ErrorTypeAssetNotFound ErrorType = "asset_not_found"
	// ErrorTypeUnsupportedBackend indicates a declared but unimplemented vector store.
	ErrorTypeUnsupportedBackend ErrorType = "unsupported_backend"
	// ErrorTypeValidation indicates malformed caller input.
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeProvider indicates an upstream provider failure.
	ErrorTypeProvider ErrorType = "provider_error"
)

// GatewayError is the typed error carried across component boundaries.
// The chat path converts these to user-visible text; every other surface
// maps them to HTTP statuses.
type GatewayError struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Provider string    `json:"provider,omitempty"`
	// Err is the original error, kept for logs, never for clients.
	Err error `json:"-"`
}

func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode maps the error type to an HTTP status for non-chat surfaces.
func (e *GatewayError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeMalformedURI, ErrorTypeValidation, ErrorTypeUnsupportedBackend:
		return http.StatusBadRequest
	case ErrorTypeModelUnavailable, ErrorTypeModelNotReady:
		return http.StatusServiceUnavailable
	case ErrorTypeProviderNotFound, ErrorTypeAgentNotFound, ErrorTypeFunctionNotFound,
		ErrorTypeToolNotFound, ErrorTypeAssetNotFound:
		return http.StatusNotFound
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsGatewayError unwraps err into a *GatewayError if it carries one.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsErrorType reports whether err is a GatewayError of the given type.
func IsErrorType(err error, t ErrorType) bool {
	ge, ok := AsGatewayError(err)
	return ok && ge.Type == t
}

func NewMalformedURIError(uri string) *GatewayError {
	return &GatewayError{Type: ErrorTypeMalformedURI, Message: fmt.Sprintf("malformed model URI %q: missing scheme separator", uri)}
}

func NewProviderNotFoundError(uri string) *GatewayError {
	return &GatewayError{Type: ErrorTypeProviderNotFound, Message: fmt.Sprintf("no provider can handle %q", uri)}
}

func NewModelUnavailableError(provider, message string) *GatewayError {
	return &GatewayError{Type: ErrorTypeModelUnavailable, Message: message, Provider: provider}
}

func NewModelNotReadyError(provider, model string) *GatewayError {
	return &GatewayError{
		Type:     ErrorTypeModelNotReady,
		Message:  fmt.Sprintf("model %q is not present locally and could not be fetched", model),
		Provider: provider,
	}
}

func NewAgentNotFoundError(uri string) *GatewayError {
	return &GatewayError{Type: ErrorTypeAgentNotFound, Message: fmt.Sprintf("agent %q not found", uri)}
}

func NewFunctionNotFoundError(id string) *GatewayError {
	return &GatewayError{Type: ErrorTypeFunctionNotFound, Message: fmt.Sprintf("function %q not found", id)}
}

func NewToolNotFoundError(name string) *GatewayError {
	return &GatewayError{Type: ErrorTypeToolNotFound, Message: fmt.Sprintf("tool %q has no matching bound callable", name)}
}

func NewAssetNotFoundError(id string) *GatewayError {
	return &GatewayError{Type: ErrorTypeAssetNotFound, Message: fmt.Sprintf("embedding asset %q not found", id)}
}

func NewUnsupportedBackendError(backend string) *GatewayError {
	return &GatewayError{Type: ErrorTypeUnsupportedBackend, Message: fmt.Sprintf("vector store backend %q is not implemented", backend)}
}

func NewValidationError(message string, err error) *GatewayError {
	return &GatewayError{Type: ErrorTypeValidation, Message: message, Err: err}
}

func NewProviderError(provider, message string, err error) *GatewayError {
	return &GatewayError{Type: ErrorTypeProvider, Message: message, Provider: provider, Err: err}
}
