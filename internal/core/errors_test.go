package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestServiceErrorHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  *ServiceError
		want int
	}{
		{"Upstream", NewUpstreamError("weather", "fetch failed", nil), http.StatusBadGateway},
		{"Unavailable", NewUnavailableError("warming up", nil), http.StatusServiceUnavailable},
		{"InvalidRequest", NewInvalidRequestError("bad input", nil), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.HTTPStatusCode(); got != tc.want {
				t.Errorf("expected %d, got %d", tc.want, got)
			}
		})
	}

	// Type-based default when no explicit status is set
	e := &ServiceError{Type: ErrorTypeUpstream}
	if got := e.HTTPStatusCode(); got != http.StatusBadGateway {
		t.Errorf("expected type-derived 502, got %d", got)
	}
	unknown := &ServiceError{Type: "mystery"}
	if got := unknown.HTTPStatusCode(); got != http.StatusInternalServerError {
		t.Errorf("expected 500 for unknown type, got %d", got)
	}
}

func TestServiceErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	e := NewUpstreamError("market", "fetch failed", cause)

	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	var svcErr *ServiceError
	if !errors.As(fmt.Errorf("wrapped: %w", e), &svcErr) {
		t.Error("expected errors.As through wrapping")
	}
}

func TestServiceErrorMessages(t *testing.T) {
	withSource := NewUpstreamError("weather", "timeout", nil)
	if got := withSource.Error(); got != "[weather] upstream_error: timeout" {
		t.Errorf("unexpected message %q", got)
	}

	noSource := NewUnavailableError("warming up", nil)
	if got := noSource.Error(); got != "unavailable_error: warming up" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestServiceErrorToJSON(t *testing.T) {
	e := NewInvalidRequestError("limit must be positive", nil)
	body := e.ToJSON()

	inner, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested error object, got %v", body)
	}
	if inner["type"] != ErrorTypeInvalidRequest {
		t.Errorf("unexpected type %v", inner["type"])
	}
	if inner["message"] != "limit must be positive" {
		t.Errorf("unexpected message %v", inner["message"])
	}
}
