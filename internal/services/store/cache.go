package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ternarybob/jobradar/internal/models"
)

// CacheGet returns nil on miss. Expired entries are returned too; the
// cache service enforces TTLs.
func (s *Store) CacheGet(ctx context.Context, key string) (*models.LLMCacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, namespace, value, model, ttl_seconds, created_at, hit_count, tokens_saved
		 FROM llm_cache WHERE key = ?`, key)

	var e models.LLMCacheEntry
	var namespace, createdAt string
	err := row.Scan(&e.Key, &namespace, &e.Value, &e.Model, &e.TTLSeconds,
		&createdAt, &e.HitCount, &e.TokensSaved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	e.Namespace = models.CacheNamespace(namespace)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// CachePut inserts or replaces an entry.
func (s *Store) CachePut(ctx context.Context, entry *models.LLMCacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_cache (key, namespace, value, model, ttl_seconds, created_at, hit_count, tokens_saved)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   model = excluded.model,
		   ttl_seconds = excluded.ttl_seconds,
		   created_at = excluded.created_at,
		   tokens_saved = excluded.tokens_saved`,
		entry.Key, string(entry.Namespace), entry.Value, entry.Model,
		entry.TTLSeconds, formatTime(entry.CreatedAt), entry.TokensSaved)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// CacheRecordHit bumps the per-entry hit counters.
func (s *Store) CacheRecordHit(ctx context.Context, key string, tokensSaved int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE llm_cache SET
		   hit_count = hit_count + 1,
		   tokens_saved = tokens_saved + ?
		 WHERE key = ?`, tokensSaved, key)
	return err
}

// CleanExpiredCache removes entries past their TTL.
func (s *Store) CleanExpiredCache(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM llm_cache
		 WHERE datetime(created_at, '+' || ttl_seconds || ' seconds') <= datetime(?)`,
		formatTime(s.now()))
	if err != nil {
		return 0, fmt.Errorf("clean cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
