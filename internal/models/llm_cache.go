package models

import "time"

// CacheNamespace partitions LLM cache entries by call purpose. Each
// namespace carries a fixed TTL.
type CacheNamespace string

const (
	CacheNamespaceJobs        CacheNamespace = "jobs"
	CacheNamespaceTranslation CacheNamespace = "translation"
	CacheNamespaceURL         CacheNamespace = "url"
	CacheNamespaceCompany     CacheNamespace = "company"
)

// NamespaceTTL returns the fixed TTL for a cache namespace.
func NamespaceTTL(ns CacheNamespace) time.Duration {
	switch ns {
	case CacheNamespaceJobs:
		return 6 * time.Hour
	case CacheNamespaceTranslation:
		return 30 * 24 * time.Hour
	case CacheNamespaceURL:
		return 7 * 24 * time.Hour
	case CacheNamespaceCompany:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// LLMCacheEntry is a memoized LLM call. The key is the first 32 hex
// characters of SHA-256 over namespace, model, and content. Expired
// entries must never be served and may be evicted at any time.
type LLMCacheEntry struct {
	Key         string         `json:"key"`
	Namespace   CacheNamespace `json:"namespace"`
	Value       string         `json:"value"` // JSON payload
	Model       string         `json:"model"`
	TTLSeconds  int            `json:"ttl_seconds"`
	CreatedAt   time.Time      `json:"created_at"`
	HitCount    int            `json:"hit_count"`
	TokensSaved int            `json:"tokens_saved"`
}

// Expired reports whether the entry has outlived its TTL at the given time.
func (e *LLMCacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) >= time.Duration(e.TTLSeconds)*time.Second
}
