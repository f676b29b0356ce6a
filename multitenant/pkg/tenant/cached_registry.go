package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const DefaultResolutionCacheTTL = 5 * time.Second

const (
	domainKeyPrefix    = "domain:"
	subdomainKeyPrefix = "subdomain:"
	studioKeyPrefix    = "studio:"
)

// CachedRegistry memoizes Registry lookups, including misses, for a bounded TTL. Concurrent lookups of the same key
// share one call to the underlying registry so that racing requests observe the same value.
type CachedRegistry struct {
	registry Registry
	cache    *ristretto.Cache
	ttl      time.Duration
	group    singleflight.Group
}

var _ Registry = (*CachedRegistry)(nil)

// cacheEntry wraps lookup results so that a cached miss can be told apart from an absent key.
type cacheEntry struct {
	binding *schema.DomainBinding
	studio  *schema.Studio
}

func NewCachedRegistry(registry Registry, ttl time.Duration) (*CachedRegistry, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        100_000,
		MaxCost:            10_000,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating resolution cache: %w", err)
	}

	return &CachedRegistry{registry: registry, cache: cache, ttl: ttl}, nil
}

func (c *CachedRegistry) FindVerifiedCustomDomain(ctx context.Context, host string) (*schema.DomainBinding, error) {
	entry, err := c.load(ctx, domainKeyPrefix+host, func(ctx context.Context) (cacheEntry, error) {
		binding, err := c.registry.FindVerifiedCustomDomain(ctx, host)
		return cacheEntry{binding: binding}, err
	})
	if err != nil || entry.binding == nil {
		return nil, err
	}
	binding := *entry.binding
	return &binding, nil
}

func (c *CachedRegistry) FindStudioBySubdomainLabel(ctx context.Context, label string) (*schema.Studio, error) {
	entry, err := c.load(ctx, subdomainKeyPrefix+label, func(ctx context.Context) (cacheEntry, error) {
		studio, err := c.registry.FindStudioBySubdomainLabel(ctx, label)
		return cacheEntry{studio: studio}, err
	})
	return copyStudio(entry.studio), err
}

func (c *CachedRegistry) FindActiveStudioByID(ctx context.Context, id string) (*schema.Studio, error) {
	entry, err := c.load(ctx, studioKeyPrefix+id, func(ctx context.Context) (cacheEntry, error) {
		studio, err := c.registry.FindActiveStudioByID(ctx, id)
		return cacheEntry{studio: studio}, err
	})
	return copyStudio(entry.studio), err
}

// Clear drops every cached lookup. Admin writes call it so their effect is visible before the TTL expires.
func (c *CachedRegistry) Clear() {
	c.cache.Clear()
}

func (c *CachedRegistry) Close() {
	c.cache.Close()
}

func (c *CachedRegistry) load(ctx context.Context, key string, fetch func(context.Context) (cacheEntry, error)) (cacheEntry, error) {
	if cached, found := c.cache.Get(key); found {
		if entry, ok := cached.(cacheEntry); ok {
			return entry, nil
		}
		c.cache.Del(key)
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		// The shared call must not be aborted by the cancellation of whichever request started it.
		entry, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return cacheEntry{}, err
		}
		c.cache.SetWithTTL(key, entry, 1, c.ttl)
		c.cache.Wait()
		return entry, nil
	})
	if err != nil {
		return cacheEntry{}, err
	}
	return result.(cacheEntry), nil
}

func copyStudio(studio *schema.Studio) *schema.Studio {
	if studio == nil {
		return nil
	}
	studioCopy := *studio
	return &studioCopy
}
