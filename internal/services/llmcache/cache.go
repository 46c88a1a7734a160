// Package llmcache memoizes LLM calls in a namespaced, TTL'd store
// keyed by a content hash. It is the difference between a rescan
// costing cents and costing nothing.
package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/models"
)

// Cache fronts the persisted llm_cache table with TTL enforcement and
// session counters. Session counters reset with the process; per-entry
// hit_count and tokens_saved persist.
type Cache struct {
	storage interfaces.CacheStorage
	model   string
	logger  arbor.ILogger
	now     func() time.Time

	hits        atomic.Int64
	misses      atomic.Int64
	tokensSaved atomic.Int64
}

// Stats is a snapshot of the session counters.
type Stats struct {
	Hits        int64
	Misses      int64
	TokensSaved int64
}

// New creates a cache bound to one model identifier; the model is part
// of every key so answers from different models never collide.
func New(storage interfaces.CacheStorage, model string, logger arbor.ILogger) *Cache {
	return &Cache{storage: storage, model: model, logger: logger, now: time.Now}
}

// Key derives the cache key: first 32 hex chars of SHA-256 over
// namespace, model and content.
func (c *Cache) Key(ns models.CacheNamespace, content string) string {
	sum := sha256.Sum256([]byte(string(ns) + ":" + c.model + ":" + content))
	return hex.EncodeToString(sum[:])[:32]
}

// Get returns the cached payload or "" on miss or expiry.
func (c *Cache) Get(ctx context.Context, ns models.CacheNamespace, content string) (string, bool) {
	key := c.Key(ns, content)
	entry, err := c.storage.CacheGet(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("namespace", string(ns)).Msg("Cache read failed")
		return "", false
	}
	if entry == nil || entry.Expired(c.now()) {
		c.misses.Add(1)
		return "", false
	}

	c.hits.Add(1)
	c.tokensSaved.Add(int64(entry.TokensSaved))
	if err := c.storage.CacheRecordHit(ctx, key, entry.TokensSaved); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to record cache hit")
	}
	return entry.Value, true
}

// Set writes an entry through to storage. Empty values are not cached
// so a transient empty answer cannot poison later runs.
func (c *Cache) Set(ctx context.Context, ns models.CacheNamespace, content, value string, tokensEstimate int) {
	if value == "" {
		return
	}
	entry := &models.LLMCacheEntry{
		Key:         c.Key(ns, content),
		Namespace:   ns,
		Value:       value,
		Model:       c.model,
		TTLSeconds:  int(models.NamespaceTTL(ns).Seconds()),
		CreatedAt:   c.now(),
		TokensSaved: tokensEstimate,
	}
	if err := c.storage.CachePut(ctx, entry); err != nil {
		c.logger.Warn().Err(err).Str("namespace", string(ns)).Msg("Cache write failed")
	}
}

// GetOrCompute is the main idiom: return the cached payload or run
// compute and cache its non-empty result.
func (c *Cache) GetOrCompute(ctx context.Context, ns models.CacheNamespace, content string, tokensEstimate int, compute func(context.Context) (string, error)) (string, error) {
	if v, ok := c.Get(ctx, ns, content); ok {
		return v, nil
	}
	v, err := compute(ctx)
	if err != nil {
		return "", err
	}
	c.Set(ctx, ns, content, v, tokensEstimate)
	return v, nil
}

// Sweep removes expired entries, returning count removed. Wired to a
// periodic cron schedule by the caller.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	removed, err := c.storage.CleanExpiredCache(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.logger.Info().Int("removed", removed).Msg("Swept expired LLM cache entries")
	}
	return removed, nil
}

// SessionStats returns the session hit/miss counters.
func (c *Cache) SessionStats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		TokensSaved: c.tokensSaved.Load(),
	}
}
