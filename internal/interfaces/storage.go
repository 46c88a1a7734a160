package interfaces

import (
	"context"

	"github.com/ternarybob/jobradar/internal/models"
)

// Store is the persistence surface for sites, career URLs, jobs and
// job history. One Store instance owns one database connection;
// methods on it serialize.
type Store interface {
	// GetOrCreateSite returns the site for a canonical domain, creating
	// it when absent.
	GetOrCreateSite(ctx context.Context, domain, name string) (*models.Site, error)

	// GetSiteByDomain returns nil when the domain is unknown.
	GetSiteByDomain(ctx context.Context, domain string) (*models.Site, error)

	// UpdateSiteDescription sets the free-text description.
	UpdateSiteDescription(ctx context.Context, siteID int64, description string) error

	// TouchSiteScanned updates last_scanned_at to now.
	TouchSiteScanned(ctx context.Context, siteID int64) error

	// ActiveCareerURLs returns the active cached career URLs for a site.
	ActiveCareerURLs(ctx context.Context, siteID int64) ([]models.CareerURL, error)

	// SaveCareerURL upserts a (site, url) pair; the URL must already be
	// canonicalized.
	SaveCareerURL(ctx context.Context, siteID int64, url, platform string) (*models.CareerURL, error)

	// MarkURLFailed increments the failure counter; reports whether the
	// URL was deactivated by reaching the failure ceiling.
	MarkURLFailed(ctx context.Context, urlID int64) (deactivated bool, err error)

	// MarkURLSuccess resets the counter and reactivates unconditionally.
	MarkURLSuccess(ctx context.Context, urlID int64) error

	// SyncJobs diffs the freshly extracted jobs against the persisted
	// set for the site inside a single transaction.
	SyncJobs(ctx context.Context, siteID int64, current []models.Job) (*models.SyncResult, error)

	// CountJobs returns the all-time job count for a site (active and
	// inactive), used by the stale-cache suspicion heuristic.
	CountJobs(ctx context.Context, siteID int64) (int, error)

	// ActiveJobs returns the currently active jobs for a site.
	ActiveJobs(ctx context.Context, siteID int64) ([]models.Job, error)

	// JobHistory returns the audit trail for one job, oldest first.
	JobHistory(ctx context.Context, jobID int64) ([]models.JobHistoryEvent, error)

	CacheStorage

	Close() error
}

// CacheStorage is the persisted side of the LLM cache.
type CacheStorage interface {
	// CacheGet returns nil on miss. Expired entries are returned too;
	// TTL enforcement is the cache service's responsibility.
	CacheGet(ctx context.Context, key string) (*models.LLMCacheEntry, error)

	// CachePut inserts or replaces an entry.
	CachePut(ctx context.Context, entry *models.LLMCacheEntry) error

	// CacheRecordHit bumps hit_count and tokens_saved counters.
	CacheRecordHit(ctx context.Context, key string, tokensSaved int) error

	// CleanExpiredCache removes expired entries, returning count removed.
	CleanExpiredCache(ctx context.Context) (int, error)
}
