// Package llm provides LLM client implementations and the model
// fallback chain used during generation.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether an error is worth retrying on the same or
// the next model in the fallback chain. Transport failures, timeouts,
// and transient HTTP statuses qualify; everything else (auth failures,
// malformed requests) fails fast.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 408, apiErr.StatusCode == 429:
			return true
		case apiErr.StatusCode >= 500:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Wrapped transport errors from http.Client.Do surface as *url.Error
	// which implements net.Error, so anything left that is not an API
	// error is treated as a transport problem.
	return !errors.Is(err, context.Canceled)
}
