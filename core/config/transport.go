package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adalundhe/termbase/core/providers"
)

// Transport assembles the configured arbitration transport: the selected
// provider adapter, wrapped with retry and, when enabled, the response
// cache.
func (c *ProviderConfig) Transport(ctx context.Context, logger *slog.Logger) (providers.Transport, error) {
	base, err := c.buildProvider(ctx)
	if err != nil {
		return nil, err
	}

	transport := providers.WithRetry(base, c.Retry, logger)

	if c.CacheEnabled {
		ttl, err := parseDuration(c.CacheTTL, 10*time.Minute)
		if err != nil {
			return nil, err
		}
		cacheCfg := providers.DefaultCacheConfig()
		cacheCfg.TTL = ttl
		cached, err := providers.WithCache(transport, cacheCfg)
		if err != nil {
			return nil, fmt.Errorf("response cache: %w", err)
		}
		transport = cached
	}

	return transport, nil
}

// buildProvider registers and returns the selected provider adapter.
func (c *ProviderConfig) buildProvider(ctx context.Context) (providers.Transport, error) {
	timeout, err := parseDuration(c.RequestTimeout, 2*time.Minute)
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry()
	providerType := providers.ProviderType(c.Type)

	switch providerType {
	case providers.ProviderTypeAnthropic:
		cfg := c.Anthropic
		cfg.Timeout = timeout
		if err := registry.RegisterAnthropic(cfg); err != nil {
			return nil, err
		}
	case providers.ProviderTypeOpenAI:
		cfg := c.OpenAI
		cfg.Timeout = timeout
		if err := registry.RegisterOpenAI(cfg); err != nil {
			return nil, err
		}
	case providers.ProviderTypeGoogle:
		cfg := c.Google
		cfg.Timeout = timeout
		if err := registry.RegisterGoogle(ctx, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", providers.ErrUnknownProviderType, c.Type)
	}

	return registry.Get(providerType)
}
