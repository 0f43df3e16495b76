package datasource

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/orb-scanner/internal/metrics"
	"github.com/yourusername/orb-scanner/internal/models"
)

// CachedBarSource memoizes FetchBars results for a TTL. Daily bars and
// backtest windows are fetched repeatedly for the same symbol; live intraday
// ranges should use a short TTL or bypass the cache.
type CachedBarSource struct {
	source BarSource
	cache  *cache.Cache
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachedBarSource wraps source with an in-memory cache
func NewCachedBarSource(source BarSource, ttl time.Duration) *CachedBarSource {
	return &CachedBarSource{
		source: source,
		cache:  cache.New(ttl, ttl*2),
		ttl:    ttl,
	}
}

// Name returns the wrapped source name
func (c *CachedBarSource) Name() string {
	return c.source.Name()
}

func cacheKey(symbol string, from, to time.Time, interval models.Interval) string {
	return fmt.Sprintf("%s:%s:%d:%d", symbol, interval, from.Unix(), to.Unix())
}

// FetchBars serves from cache when possible. Errors are never cached.
func (c *CachedBarSource) FetchBars(ctx context.Context, symbol string, from, to time.Time, interval models.Interval) ([]models.Bar, error) {
	key := cacheKey(symbol, from, to, interval)
	if cached, found := c.cache.Get(key); found {
		if bars, ok := cached.([]models.Bar); ok {
			c.hits.Add(1)
			metrics.RecordCacheLookup(true)
			return append([]models.Bar(nil), bars...), nil
		}
	}
	c.misses.Add(1)
	metrics.RecordCacheLookup(false)

	bars, err := c.source.FetchBars(ctx, symbol, from, to, interval)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, append([]models.Bar(nil), bars...), c.ttl)
	return bars, nil
}

// Stats returns hit and miss counts
func (c *CachedBarSource) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Flush drops every cached entry
func (c *CachedBarSource) Flush() {
	c.cache.Flush()
}
