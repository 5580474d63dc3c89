package providers

import (
	"context"
	"fmt"
	"sync"
)

// Registry manages configured transports and selects among them. The first
// registered transport becomes the default.
type Registry struct {
	mu sync.RWMutex

	transports map[ProviderType]Transport
	default_   ProviderType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[ProviderType]Transport),
	}
}

// Register adds a transport to the registry.
func (r *Registry) Register(providerType ProviderType, transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transports[providerType] = transport
	if len(r.transports) == 1 {
		r.default_ = providerType
	}
}

// RegisterAnthropic creates and registers an Anthropic transport.
func (r *Registry) RegisterAnthropic(config AnthropicConfig) error {
	transport, err := NewAnthropicTransport(config)
	if err != nil {
		return err
	}
	r.Register(ProviderTypeAnthropic, transport)
	return nil
}

// RegisterOpenAI creates and registers an OpenAI transport.
func (r *Registry) RegisterOpenAI(config OpenAIConfig) error {
	transport, err := NewOpenAITransport(config)
	if err != nil {
		return err
	}
	r.Register(ProviderTypeOpenAI, transport)
	return nil
}

// RegisterGoogle creates and registers a Google transport.
func (r *Registry) RegisterGoogle(ctx context.Context, config GoogleConfig) error {
	transport, err := NewGoogleTransport(ctx, config)
	if err != nil {
		return err
	}
	r.Register(ProviderTypeGoogle, transport)
	return nil
}

// Get returns a transport by type.
func (r *Registry) Get(providerType ProviderType) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transport, ok := r.transports[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotRegistered, providerType)
	}
	return transport, nil
}

// Default returns the default transport.
func (r *Registry) Default() (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.default_ == "" {
		return nil, ErrProviderNotRegistered
	}
	return r.transports[r.default_], nil
}

// SetDefault changes the default transport.
func (r *Registry) SetDefault(providerType ProviderType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transports[providerType]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotRegistered, providerType)
	}
	r.default_ = providerType
	return nil
}

// Types returns the registered provider types.
func (r *Registry) Types() []ProviderType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ProviderType, 0, len(r.transports))
	for t := range r.transports {
		types = append(types, t)
	}
	return types
}
