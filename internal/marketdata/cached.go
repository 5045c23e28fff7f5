package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/sycamore/internal/contracts"
	"github.com/wonny/sycamore/pkg/redis"
)

// CachedProvider layers a shared Redis cache over another provider so
// repeated runs over the same window skip the database. The Store's own
// in-process memoization still applies on top; this cache exists to
// survive across process restarts.
type CachedProvider struct {
	next  Provider
	cache *redis.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps next with a Redis-backed bar cache.
func NewCachedProvider(next Provider, cache *redis.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache,
		ttl:   ttl,
	}
}

// Fetch serves from Redis when possible, falling through to the wrapped
// provider and populating the cache on a miss. Cache failures degrade
// to a direct fetch.
func (p *CachedProvider) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]contracts.Bar, error) {
	key := fmt.Sprintf("bars:%s:%s:%s", symbol, start.Format("20060102"), end.Format("20060102"))

	var bars []contracts.Bar
	if found, err := p.cache.Get(ctx, key, &bars); err == nil && found {
		return bars, nil
	}

	bars, err := p.next.Fetch(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	_ = p.cache.Set(ctx, key, bars, p.ttl)
	return bars, nil
}
