package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured is returned when no usable API key was provided.
	ErrNotConfigured = errors.New("llm: api key not configured")

	// ErrNoResponse is returned when the model produced no content.
	ErrNoResponse = errors.New("llm: no response content")

	// ErrUnparseable is returned when the reply holds no JSON object.
	ErrUnparseable = errors.New("llm: could not parse response as JSON")

	ErrRateLimited  = errors.New("llm: rate limited")
	ErrUnauthorized = errors.New("llm: unauthorized")
	ErrUpstream     = errors.New("llm: upstream error")
)

// APIError is a non-2xx reply from the completion endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("llm: api returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrUpstream
	}
}
