package extract

import (
	"strings"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/normalize"
)

// dedupSet tracks which candidates have already been collected across
// pagination pages. URL is the primary key when it is non-empty and not
// a self-reference back to the listing page; (normalized title,
// normalized location) is the fallback.
type dedupSet struct {
	byURL map[string]bool
	byKey map[string]bool
}

func newDedupSet() *dedupSet {
	return &dedupSet{byURL: map[string]bool{}, byKey: map[string]bool{}}
}

// Add records a candidate; it returns false when the candidate was
// already present.
func (d *dedupSet) Add(c models.JobCandidate, pageURL string) bool {
	if u := dedupURL(c.URL, pageURL); u != "" {
		if d.byURL[u] {
			return false
		}
		d.byURL[u] = true
		return true
	}
	key := normalize.Title(c.Title) + "\x00" + normalize.Location(c.Location)
	if d.byKey[key] {
		return false
	}
	d.byKey[key] = true
	return true
}

// dedupURL canonicalizes a candidate URL for deduplication. Returns ""
// when the URL is empty or self-references the current page (equal
// after stripping trailing slashes, or a bare "#" fragment), forcing
// the title/location fallback.
func dedupURL(rawURL, pageURL string) string {
	u := strings.TrimSpace(rawURL)
	if u == "" || u == "#" {
		return ""
	}
	if i := strings.Index(u, "#"); i >= 0 {
		if rest := u[:i]; rest == "" || sameStripped(rest, pageURL) {
			return ""
		}
		u = u[:i]
	}
	if sameStripped(u, pageURL) {
		return ""
	}
	return strings.TrimSuffix(u, "/")
}

func sameStripped(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}

// Dedup removes duplicates from a candidate list, preserving order.
// The pass is idempotent: deduplicating an already-deduplicated list is
// a fixpoint.
func Dedup(candidates []models.JobCandidate, pageURL string) []models.JobCandidate {
	set := newDedupSet()
	out := make([]models.JobCandidate, 0, len(candidates))
	for _, c := range candidates {
		if set.Add(c, pageURL) {
			out = append(out, c)
		}
	}
	return out
}
