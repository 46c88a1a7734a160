package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ternarybob/jobradar/internal/models"
)

// GetOrCreateSite returns the site for a canonical domain, creating it
// when absent.
func (s *Store) GetOrCreateSite(ctx context.Context, domain, name string) (*models.Site, error) {
	if site, err := s.GetSiteByDomain(ctx, domain); err != nil {
		return nil, err
	} else if site != nil {
		return site, nil
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (domain, name, created_at) VALUES (?, ?, ?)`,
		domain, name, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("create site %s: %w", domain, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("domain", domain).Int64("site_id", id).Msg("Site created")
	return &models.Site{ID: id, Domain: domain, Name: name, CreatedAt: now}, nil
}

// GetSiteByDomain returns nil when the domain is unknown.
func (s *Store) GetSiteByDomain(ctx context.Context, domain string) (*models.Site, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, name, description, created_at, last_scanned_at
		 FROM sites WHERE domain = ?`, domain)

	var site models.Site
	var createdAt string
	var lastScanned sql.NullString
	err := row.Scan(&site.ID, &site.Domain, &site.Name, &site.Description, &createdAt, &lastScanned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get site %s: %w", domain, err)
	}
	site.CreatedAt = parseTime(createdAt)
	site.LastScannedAt = parseNullTime(lastScanned)
	return &site, nil
}

// UpdateSiteDescription sets the free-text company description.
func (s *Store) UpdateSiteDescription(ctx context.Context, siteID int64, description string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sites SET description = ? WHERE id = ?`, description, siteID)
	return err
}

// TouchSiteScanned records a completed scan.
func (s *Store) TouchSiteScanned(ctx context.Context, siteID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sites SET last_scanned_at = ? WHERE id = ?`, formatTime(s.now()), siteID)
	return err
}

// ActiveCareerURLs returns the active cached career URLs for a site,
// most recently successful first.
func (s *Store) ActiveCareerURLs(ctx context.Context, siteID int64) ([]models.CareerURL, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, url, platform, is_active, fail_count,
		        last_success_at, last_fail_at, created_at
		 FROM career_urls
		 WHERE site_id = ? AND is_active = 1
		 ORDER BY last_success_at DESC, id`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list career urls: %w", err)
	}
	defer rows.Close()

	var out []models.CareerURL
	for rows.Next() {
		u, err := scanCareerURL(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// SaveCareerURL upserts a (site, url) pair; the URL must already be
// canonicalized. Saving an existing URL reactivates it.
func (s *Store) SaveCareerURL(ctx context.Context, siteID int64, url, platform string) (*models.CareerURL, error) {
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO career_urls (site_id, url, platform, is_active, fail_count, created_at)
		 VALUES (?, ?, ?, 1, 0, ?)
		 ON CONFLICT(site_id, url) DO UPDATE SET
		   platform = excluded.platform,
		   is_active = 1,
		   fail_count = 0`,
		siteID, url, platform, now)
	if err != nil {
		return nil, fmt.Errorf("save career url %s: %w", url, err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, site_id, url, platform, is_active, fail_count,
		        last_success_at, last_fail_at, created_at
		 FROM career_urls WHERE site_id = ? AND url = ?`, siteID, url)
	return scanCareerURL(row)
}

// MarkURLFailed increments the failure counter and reports whether the
// URL was deactivated by reaching the failure ceiling.
func (s *Store) MarkURLFailed(ctx context.Context, urlID int64) (bool, error) {
	now := formatTime(s.now())
	_, err := s.db.ExecContext(ctx,
		`UPDATE career_urls SET
		   fail_count = fail_count + 1,
		   last_fail_at = ?,
		   is_active = CASE WHEN fail_count + 1 >= ? THEN 0 ELSE is_active END
		 WHERE id = ?`,
		now, models.MaxURLFailures, urlID)
	if err != nil {
		return false, fmt.Errorf("mark url failed: %w", err)
	}

	var active bool
	var failCount int
	if err := s.db.QueryRowContext(ctx,
		`SELECT is_active, fail_count FROM career_urls WHERE id = ?`, urlID).
		Scan(&active, &failCount); err != nil {
		return false, err
	}
	deactivated := !active && failCount >= models.MaxURLFailures
	if deactivated {
		s.logger.Warn().Int64("url_id", urlID).Int("fail_count", failCount).Msg("Career URL deactivated")
	}
	return deactivated, nil
}

// MarkURLSuccess resets the counter and reactivates unconditionally.
func (s *Store) MarkURLSuccess(ctx context.Context, urlID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE career_urls SET
		   fail_count = 0, is_active = 1, last_success_at = ?
		 WHERE id = ?`,
		formatTime(s.now()), urlID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCareerURL(row rowScanner) (*models.CareerURL, error) {
	var u models.CareerURL
	var createdAt string
	var lastSuccess, lastFail sql.NullString
	if err := row.Scan(&u.ID, &u.SiteID, &u.URL, &u.Platform, &u.IsActive,
		&u.FailCount, &lastSuccess, &lastFail, &createdAt); err != nil {
		return nil, fmt.Errorf("scan career url: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	u.LastSuccessAt = parseNullTime(lastSuccess)
	u.LastFailAt = parseNullTime(lastFail)
	return &u, nil
}
