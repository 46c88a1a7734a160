package llmcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/models"
)

// memStorage is an in-memory CacheStorage for tests.
type memStorage struct {
	entries map[string]*models.LLMCacheEntry
	now     func() time.Time
}

func newMemStorage() *memStorage {
	return &memStorage{entries: map[string]*models.LLMCacheEntry{}, now: time.Now}
}

func (m *memStorage) CacheGet(_ context.Context, key string) (*models.LLMCacheEntry, error) {
	e, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memStorage) CachePut(_ context.Context, entry *models.LLMCacheEntry) error {
	cp := *entry
	m.entries[entry.Key] = &cp
	return nil
}

func (m *memStorage) CacheRecordHit(_ context.Context, key string, tokensSaved int) error {
	if e, ok := m.entries[key]; ok {
		e.HitCount++
		e.TokensSaved += tokensSaved
	}
	return nil
}

func (m *memStorage) CleanExpiredCache(_ context.Context) (int, error) {
	removed := 0
	for k, e := range m.entries {
		if e.Expired(m.now()) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

func TestGetAfterSet(t *testing.T) {
	c := New(newMemStorage(), "test-model", common.GetLogger())
	ctx := context.Background()

	c.Set(ctx, models.CacheNamespaceJobs, "content", `{"jobs":[]}`, 100)
	v, ok := c.Get(ctx, models.CacheNamespaceJobs, "content")
	require.True(t, ok)
	assert.Equal(t, `{"jobs":[]}`, v)
}

func TestGetExpiredReturnsNothing(t *testing.T) {
	c := New(newMemStorage(), "test-model", common.GetLogger())
	ctx := context.Background()

	c.Set(ctx, models.CacheNamespaceJobs, "content", "value", 10)
	// jobs TTL is 6h; jump past it
	c.now = func() time.Time { return time.Now().Add(6*time.Hour + time.Second) }

	_, ok := c.Get(ctx, models.CacheNamespaceJobs, "content")
	assert.False(t, ok)
}

func TestEmptyValueNotCached(t *testing.T) {
	store := newMemStorage()
	c := New(store, "test-model", common.GetLogger())
	c.Set(context.Background(), models.CacheNamespaceURL, "content", "", 10)
	assert.Empty(t, store.entries)
}

func TestKeyDependsOnNamespaceAndModel(t *testing.T) {
	c1 := New(newMemStorage(), "model-a", common.GetLogger())
	c2 := New(newMemStorage(), "model-b", common.GetLogger())

	assert.Len(t, c1.Key(models.CacheNamespaceJobs, "x"), 32)
	assert.NotEqual(t, c1.Key(models.CacheNamespaceJobs, "x"), c1.Key(models.CacheNamespaceURL, "x"))
	assert.NotEqual(t, c1.Key(models.CacheNamespaceJobs, "x"), c2.Key(models.CacheNamespaceJobs, "x"))
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStorage(), "test-model", common.GetLogger())
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (string, error) {
		calls++
		return "computed", nil
	}

	v, err := c.GetOrCompute(ctx, models.CacheNamespaceCompany, "acme", 50, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)

	v, err = c.GetOrCompute(ctx, models.CacheNamespaceCompany, "acme", 50, compute)
	require.NoError(t, err)
	assert.Equal(t, "computed", v)
	assert.Equal(t, 1, calls)

	stats := c.SessionStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	store := newMemStorage()
	c := New(store, "test-model", common.GetLogger())

	_, err := c.GetOrCompute(context.Background(), models.CacheNamespaceURL, "x", 0, func(context.Context) (string, error) {
		return "", errors.New("provider down")
	})
	require.Error(t, err)
	assert.Empty(t, store.entries)
}

func TestSweepRemovesExpired(t *testing.T) {
	store := newMemStorage()
	c := New(store, "test-model", common.GetLogger())
	ctx := context.Background()

	c.Set(ctx, models.CacheNamespaceJobs, "old", "v1", 0)
	c.Set(ctx, models.CacheNamespaceTranslation, "fresh", "v2", 0)

	store.now = func() time.Time { return time.Now().Add(7 * time.Hour) } // jobs TTL 6h, translation 30d
	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, store.entries, 1)
}
