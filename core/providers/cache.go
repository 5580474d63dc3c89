package providers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultCacheCounters = 1e5
	defaultCacheMaxCost  = 1e7 // 10MB of response text
	defaultCacheBuffer   = 64
	defaultCacheTTL      = 10 * time.Minute
)

// CacheConfig configures the arbitration response cache.
type CacheConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	TTL         time.Duration
}

// DefaultCacheConfig returns cache defaults sized for arbitration text.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		NumCounters: defaultCacheCounters,
		MaxCost:     defaultCacheMaxCost,
		BufferItems: defaultCacheBuffer,
		TTL:         defaultCacheTTL,
	}
}

// CachedTransport memoizes successful arbitration responses by prompt so
// identical conflict/proposal pairs within a process do not re-bill the
// provider. Failed requests are never cached.
type CachedTransport struct {
	inner Transport
	cache *ristretto.Cache
	ttl   time.Duration
}

// WithCache wraps a transport with a ristretto-backed response cache.
func WithCache(inner Transport, cfg CacheConfig) (*CachedTransport, error) {
	def := DefaultCacheConfig()
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = def.NumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = def.MaxCost
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = def.BufferItems
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &CachedTransport{
		inner: inner,
		cache: cache,
		ttl:   cfg.TTL,
	}, nil
}

// Name returns the inner provider identifier.
func (t *CachedTransport) Name() string {
	return t.inner.Name()
}

// Request returns a cached response when available, otherwise forwards to
// the inner transport and caches the result.
func (t *CachedTransport) Request(ctx context.Context, prompt string) (string, error) {
	key := t.cacheKey(prompt)

	if value, found := t.cache.Get(key); found {
		if resp, ok := value.(string); ok {
			return resp, nil
		}
	}

	resp, err := t.inner.Request(ctx, prompt)
	if err != nil {
		return "", err
	}

	t.cache.SetWithTTL(key, resp, int64(len(resp)), t.ttl)
	return resp, nil
}

// Wait blocks until pending cache writes are visible. Useful in tests.
func (t *CachedTransport) Wait() {
	t.cache.Wait()
}

// Close releases cache resources.
func (t *CachedTransport) Close() {
	t.cache.Close()
}

// cacheKey hashes the provider name and prompt into a stable key.
func (t *CachedTransport) cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(t.inner.Name() + ":" + prompt))
	return hex.EncodeToString(sum[:])
}
