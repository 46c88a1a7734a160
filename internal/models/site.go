package models

import "time"

// Site represents one company domain being scanned for job listings.
// A site is created lazily on the first successful discovery or when
// caching a scan result; it is never deleted.
type Site struct {
	ID            int64      `json:"id"`
	Domain        string     `json:"domain"` // canonical: lowercase, no "www."
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
}
