// Package providers implements the arbitration transport: adapters over
// LLM provider SDKs that take a rendered prompt and return the model's raw
// response text. Retry, backoff, and response caching live here; the merge
// scheduler never sees them.
package providers

import (
	"context"
	"errors"
)

// Transport executes one arbitration request against a provider.
type Transport interface {
	// Name returns the provider identifier.
	Name() string
	// Request sends the prompt and returns the raw response text.
	Request(ctx context.Context, prompt string) (string, error)
}

// ProviderType identifies a supported provider.
type ProviderType string

const (
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeGoogle    ProviderType = "google"
)

var (
	// ErrEmptyResponse indicates the provider returned no usable text.
	ErrEmptyResponse = errors.New("provider returned an empty response")

	// ErrProviderNotRegistered indicates a lookup for an unconfigured
	// provider.
	ErrProviderNotRegistered = errors.New("provider not registered")

	// ErrUnknownProviderType indicates an unrecognized provider type in
	// configuration.
	ErrUnknownProviderType = errors.New("unknown provider type")
)
