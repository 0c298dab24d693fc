package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/imyousuf/codescribe/pkg/llm"
)

// ErrModelFatal reports that every model in the fallback chain failed
// with a retryable error and no usable response could be obtained.
var ErrModelFatal = errors.New("all models in fallback chain failed")

// FallbackChain tries each configured client in order. Retryable
// failures move to the next client; fatal failures return immediately.
// The chain itself satisfies llm.Client so callers stay provider
// agnostic.
type FallbackChain struct {
	clients []llm.Client
	logf    func(format string, args ...any)
}

// NewFallbackChain builds a chain over the clients in priority order.
// logf may be nil.
func NewFallbackChain(clients []llm.Client, logf func(format string, args ...any)) (*FallbackChain, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("fallback chain requires at least one client")
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &FallbackChain{clients: clients, logf: logf}, nil
}

// Complete tries each client until one succeeds or a fatal error occurs.
func (f *FallbackChain) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	var lastErr error
	for i, client := range f.clients {
		resp, err := client.Complete(ctx, req)
		if err == nil {
			resp.ToolCalls = RepairToolCalls(resp.ToolCalls, f.logf)
			return resp, nil
		}
		if !IsRetryable(err) {
			return nil, fmt.Errorf("model %s failed: %w", client.Model(), err)
		}
		lastErr = err
		if i < len(f.clients)-1 {
			f.logf("model %s failed (%v), falling back to %s", client.Model(), err, f.clients[i+1].Model())
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: last error: %v", ErrModelFatal, lastErr)
}

// Model returns the primary model name.
func (f *FallbackChain) Model() string {
	return f.clients[0].Model()
}

// Provider returns the primary provider name.
func (f *FallbackChain) Provider() string {
	return f.clients[0].Provider()
}

// Close closes every client in the chain, returning the first error.
func (f *FallbackChain) Close() error {
	var first error
	for _, client := range f.clients {
		if err := client.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
