package models

import "time"

// MaxURLFailures is the consecutive-failure count at which a cached
// career URL is deactivated and skipped on future runs.
const MaxURLFailures = 3

// CareerURL is a discovered entry point into a company's job listings.
// The URL is stored canonicalized (scheme+host+path, query and fragment
// stripped). A URL cycles through active -> degraded -> inactive as
// consecutive failures accumulate; any success resets it to active.
type CareerURL struct {
	ID            int64      `json:"id"`
	SiteID        int64      `json:"site_id"`
	URL           string     `json:"url"`
	Platform      string     `json:"platform,omitempty"` // e.g. "personio", "greenhouse"
	IsActive      bool       `json:"is_active"`
	FailCount     int        `json:"fail_count"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailAt    *time.Time `json:"last_fail_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
