// Package parsers holds the platform-specific ATS extraction family.
// Parsers are pure: DOM in, candidates out, no I/O. Network
// follow-through (API endpoints, pagination) belongs to the extractor
// orchestration layer.
package parsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/normalize"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

// Parser extracts job candidates from a rendered board page.
type Parser func(doc *goquery.Document, baseURL string) []models.JobCandidate

// registry keys the closed parser family by platform tag.
var registry = map[string]Parser{
	platform.Personio:   ParsePersonio,
	platform.Greenhouse: ParseGreenhouse,
	platform.Lever:      ParseLever,
	platform.Workable:   ParseWorkable,
	platform.Recruitee:  ParseRecruitee,
	platform.Odoo:       ParseOdoo,
	platform.HiBob:      ParseHiBob,
	platform.HRworks:    ParseHRworks,
	platform.Deloitte:   ParseDeloitte,
}

// ForPlatform returns the parser for a platform tag.
func ForPlatform(tag string) (Parser, bool) {
	p, ok := registry[tag]
	return p, ok
}

// Parse runs the parser for a platform tag over raw HTML and applies
// the shared non-job filter.
func Parse(tag, html, baseURL string) ([]models.JobCandidate, bool) {
	p, ok := registry[tag]
	if !ok {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, true
	}
	return FilterNonJobs(p(doc, baseURL)), true
}

// FilterNonJobs drops submission channels (Initiativbewerbung, open
// applications) and company-name-shaped titles from a candidate list.
func FilterNonJobs(candidates []models.JobCandidate) []models.JobCandidate {
	out := make([]models.JobCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Title == "" || normalize.IsNonJob(c.Title) || normalize.IsCompanyName(c.Title) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// candidate builds a board-sourced candidate with a resolved URL.
func candidate(tag, title, href, location, baseURL string) models.JobCandidate {
	return models.JobCandidate{
		Title:      strings.TrimSpace(title),
		URL:        common.ResolveURL(baseURL, href),
		Location:   strings.TrimSpace(location),
		Source:     models.ExtractionJobBoard(tag),
		Confidence: 0.95,
	}
}

// cleanText collapses inner whitespace of an element's text.
func cleanText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
