package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Client is the interface for interacting with LLM providers.
type Client interface {
	// Complete sends a chat completion request, including any tool
	// definitions, and returns the model's response.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Model returns the name of the model being used.
	Model() string

	// Provider returns the provider name (e.g., "openai").
	Provider() string

	// Close releases any resources held by the client.
	Close() error
}

// Config holds configuration for creating an LLM client.
type Config struct {
	// Provider specifies which LLM provider to use.
	Provider string
	// Model is the model name/ID to use.
	Model string
	// APIKey is the API key for authentication.
	APIKey string
	// BaseURL is an optional base URL override for the provider API.
	BaseURL string
	// RequestTimeoutSeconds bounds a single request. Zero uses the
	// provider default.
	RequestTimeoutSeconds int
}

// ProviderFactory is a function type for creating LLM clients.
type ProviderFactory func(cfg Config) (Client, error)

var (
	registry   = make(map[string]ProviderFactory)
	registryMu sync.RWMutex
)

// RegisterProvider registers a client factory for a provider.
// This should be called in init() functions of provider implementations.
func RegisterProvider(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewClient creates a new LLM client based on the configuration.
func NewClient(cfg Config) (Client, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("provider is required")
	}

	registryMu.RLock()
	factory, ok := registry[cfg.Provider]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (available: %v)", cfg.Provider, availableProviders())
	}

	return factory(cfg)
}

// IsProviderRegistered checks if a provider is registered.
func IsProviderRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

// availableProviders returns a sorted list of registered provider names.
func availableProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	providers := make([]string, 0, len(registry))
	for p := range registry {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}
