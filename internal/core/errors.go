package core

import (
	"fmt"
	"net/http"
)

// ErrorType classifies a service error for HTTP mapping.
type ErrorType string

const (
	// ErrorTypeUpstream indicates a third-party data source error.
	ErrorTypeUpstream ErrorType = "upstream_error"
	// ErrorTypeUnavailable indicates data could not be served at all
	// (cold cache and the synchronous produce also failed).
	ErrorTypeUnavailable ErrorType = "unavailable_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx).
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
)

// ServiceError is the base error type surfaced by handlers.
type ServiceError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Source     string    `json:"source,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Source, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e *ServiceError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map.
func (e *ServiceError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewUpstreamError creates an error for a failed third-party call.
func NewUpstreamError(source string, message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Source:     source,
		Err:        err,
	}
}

// NewUnavailableError creates a 503 for a cold-cache miss whose synchronous
// produce also failed.
func NewUnavailableError(message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInvalidRequestError creates a new invalid request error (400).
func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}
