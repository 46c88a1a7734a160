// Package extract holds the structured extractors and the hybrid
// orchestration that picks between ATS parsers, Schema.org markup,
// PDF links and the LLM, including the pagination loop.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/parsers"
)

// SchemaOrgJobs extracts JobPosting candidates from JSON-LD blocks and
// microdata. Each script block is parsed independently so one malformed
// block cannot hide the others; @graph arrays and root-level arrays are
// traversed.
func SchemaOrgJobs(html, baseURL string) []models.JobCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []models.JobCandidate
	doc.Find(`script[type="application/ld+json"], script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		var root any
		if err := json.Unmarshal([]byte(s.Text()), &root); err != nil {
			return
		}
		for _, posting := range collectPostings(root) {
			if c, ok := postingToCandidate(posting, baseURL); ok {
				out = append(out, c)
			}
		}
	})

	// microdata fallback
	doc.Find(`[itemtype*="JobPosting"]`).Each(func(_ int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(`[itemprop="title"], [itemprop="name"]`).First().Text())
		if title == "" {
			return
		}
		href, _ := item.Find(`a[itemprop="url"], [itemprop="url"]`).First().Attr("href")
		if href == "" {
			href, _ = item.Find("a[href]").First().Attr("href")
		}
		location := strings.TrimSpace(item.Find(`[itemprop="addressLocality"]`).First().Text())

		out = append(out, models.JobCandidate{
			Title:      title,
			URL:        common.ResolveURL(baseURL, href),
			Location:   location,
			Source:     models.ExtractionSchemaOrg,
			Confidence: 0.9,
		})
	})

	return parsers.FilterNonJobs(out)
}

// collectPostings walks a parsed JSON-LD value for JobPosting objects.
func collectPostings(root any) []map[string]any {
	var out []map[string]any
	switch v := root.(type) {
	case map[string]any:
		switch t := v["@type"].(type) {
		case string:
			if t == "JobPosting" {
				out = append(out, v)
			}
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok && s == "JobPosting" {
					out = append(out, v)
					break
				}
			}
		}
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				out = append(out, collectPostings(item)...)
			}
		}
	case []any:
		for _, item := range v {
			out = append(out, collectPostings(item)...)
		}
	}
	return out
}

func postingToCandidate(posting map[string]any, baseURL string) (models.JobCandidate, bool) {
	title, _ := posting["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return models.JobCandidate{}, false
	}
	href, _ := posting["url"].(string)

	c := models.JobCandidate{
		Title:      title,
		URL:        common.ResolveURL(baseURL, href),
		Location:   schemaLocation(posting),
		Source:     models.ExtractionSchemaOrg,
		Confidence: 0.9,
	}
	if org, ok := posting["hiringOrganization"].(map[string]any); ok {
		c.Company, _ = org["name"].(string)
	}
	if et, ok := posting["employmentType"].(string); ok {
		c.EmploymentType = et
	}
	if id, ok := posting["identifier"].(map[string]any); ok {
		if v, ok := id["value"].(string); ok {
			c.ExternalID = v
		}
	}
	return c, true
}

// schemaLocation reads jobLocation.address.addressLocality, accepting
// object and string address forms and jobLocation arrays.
func schemaLocation(posting map[string]any) string {
	loc := posting["jobLocation"]
	if arr, ok := loc.([]any); ok && len(arr) > 0 {
		loc = arr[0]
	}
	obj, ok := loc.(map[string]any)
	if !ok {
		if s, ok := loc.(string); ok {
			return strings.TrimSpace(s)
		}
		return ""
	}
	switch addr := obj["address"].(type) {
	case map[string]any:
		s, _ := addr["addressLocality"].(string)
		return strings.TrimSpace(s)
	case string:
		return strings.TrimSpace(addr)
	}
	return ""
}
