// Package cache stores completed pipeline results in Upstash keyed by
// canonical query, with category-based expiry. Caching is an optimization:
// every failure is swallowed with a warning and the pipeline proceeds as if
// the entry were absent.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/realty-search/internal/model"
	"github.com/sells-group/realty-search/pkg/upstash"
)

const (
	keyPrefix  = "cache:"
	metricsKey = "cache:metrics"
	popularKey = "popular:queries"
)

// Expiry per result category. Market data moves daily; general knowledge
// holds for a week.
const (
	TTLMarketData       = 24 * time.Hour
	TTLGeneralKnowledge = 7 * 24 * time.Hour
)

// TTLFor returns the cache expiry for a result category.
func TTLFor(category model.Category) time.Duration {
	if category == model.CategoryMarketData {
		return TTLMarketData
	}
	return TTLGeneralKnowledge
}

// PopularQuery is a canonical query with its completed-run count.
type PopularQuery struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Metrics reports cumulative cache hit and miss counts.
type Metrics struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Cache wraps an Upstash client. A nil client disables it and every
// operation becomes a no-op, so callers never branch on availability.
type Cache struct {
	client upstash.Client
}

// New creates a Cache. Pass nil to disable caching.
func New(client upstash.Client) *Cache {
	return &Cache{client: client}
}

// Open pings the backing store once and returns a disabled Cache when it
// is unreachable, so a bad credential surfaces at startup instead of as a
// warning on every request.
func Open(ctx context.Context, client upstash.Client) *Cache {
	if client == nil {
		return New(nil)
	}
	if err := client.Ping(ctx); err != nil {
		zap.L().Warn("cache: backing store unreachable, caching disabled", zap.Error(err))
		return New(nil)
	}
	return New(client)
}

// Enabled reports whether a backing store is configured.
func (c *Cache) Enabled() bool {
	return c.client != nil
}

// Get looks up the result stored under the canonical key. A decode failure
// or transport error counts as a miss.
func (c *Cache) Get(ctx context.Context, key string) (*model.PipelineResult, bool) {
	if c.client == nil {
		return nil, false
	}

	raw, found, err := c.client.Get(ctx, keyPrefix+key)
	if err != nil {
		zap.L().Warn("cache: lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		c.count(ctx, "misses")
		return nil, false
	}

	var result model.PipelineResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		zap.L().Warn("cache: corrupt entry", zap.String("key", key), zap.Error(err))
		c.count(ctx, "misses")
		return nil, false
	}

	c.count(ctx, "hits")
	return &result, true
}

// Set stores the result under the canonical key with the category TTL.
func (c *Cache) Set(ctx context.Context, key string, result *model.PipelineResult) {
	if c.client == nil || result == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		zap.L().Warn("cache: marshal result", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.client.SetEx(ctx, keyPrefix+key, string(raw), TTLFor(result.Category)); err != nil {
		zap.L().Warn("cache: store failed", zap.String("key", key), zap.Error(err))
	}
}

// Evict removes the entry stored under the canonical key.
func (c *Cache) Evict(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if _, err := c.client.Del(ctx, keyPrefix+key); err != nil {
		zap.L().Warn("cache: evict failed", zap.String("key", key), zap.Error(err))
	}
}

// IncrPopular bumps the completed-run counter for the canonical key.
func (c *Cache) IncrPopular(ctx context.Context, key string) {
	if c.client == nil {
		return
	}
	if _, err := c.client.ZIncrBy(ctx, popularKey, 1, key); err != nil {
		zap.L().Warn("cache: popularity increment failed", zap.String("key", key), zap.Error(err))
	}
}

// TopQueries returns the n most frequently completed canonical queries.
func (c *Cache) TopQueries(ctx context.Context, n int) ([]PopularQuery, error) {
	if c.client == nil || n <= 0 {
		return nil, nil
	}
	members, err := c.client.ZRevRangeWithScores(ctx, popularKey, 0, n-1)
	if err != nil {
		return nil, err
	}
	out := make([]PopularQuery, 0, len(members))
	for _, m := range members {
		out = append(out, PopularQuery{Query: m.Member, Count: int64(m.Score)})
	}
	return out, nil
}

// Stats returns cumulative hit/miss counters.
func (c *Cache) Stats(ctx context.Context) (Metrics, error) {
	if c.client == nil {
		return Metrics{}, nil
	}
	fields, err := c.client.HGetAll(ctx, metricsKey)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{
		Hits:   parseCount(fields["hits"]),
		Misses: parseCount(fields["misses"]),
	}, nil
}

func (c *Cache) count(ctx context.Context, field string) {
	if _, err := c.client.HIncrBy(ctx, metricsKey, field, 1); err != nil {
		zap.L().Warn("cache: metrics increment failed", zap.String("field", field), zap.Error(err))
	}
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
