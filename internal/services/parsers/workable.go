package parsers

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

var (
	workableJobPath = regexp.MustCompile(`/j/([A-Za-z0-9]+)/?`)
	workableMarkers = regexp.MustCompile(`(?i)\b(hybrid|remote|on-site|onsite|full time|part time|full-time|part-time)\b`)
)

// ParseWorkable extracts jobs from a Workable board. Preference order:
// embedded JSON-LD JobPosting blocks, then list items linking to
// /j/<code>, then a last-resort text split on employment markers.
func ParseWorkable(doc *goquery.Document, baseURL string) []models.JobCandidate {
	if out := workableFromJSONLD(doc, baseURL); len(out) > 0 {
		return out
	}
	if out := workableFromLinks(doc, baseURL); len(out) > 0 {
		return out
	}
	return workableFromText(doc, baseURL)
}

// workableFromJSONLD accepts single objects, @graph wrappers and array
// roots.
func workableFromJSONLD(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var root any
		if err := json.Unmarshal([]byte(s.Text()), &root); err != nil {
			return
		}
		for _, posting := range jsonLDPostings(root) {
			title, _ := posting["title"].(string)
			if title == "" {
				continue
			}
			href, _ := posting["url"].(string)
			c := candidate(platform.Workable, title, href, jsonLDLocation(posting), baseURL)
			if org, ok := posting["hiringOrganization"].(map[string]any); ok {
				c.Company, _ = org["name"].(string)
			}
			out = append(out, c)
		}
	})
	return out
}

// jsonLDPostings collects every JobPosting object reachable from a
// parsed JSON-LD root, traversing @graph arrays and root-level arrays.
func jsonLDPostings(root any) []map[string]any {
	var out []map[string]any
	switch v := root.(type) {
	case map[string]any:
		if t, _ := v["@type"].(string); t == "JobPosting" {
			out = append(out, v)
		}
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				out = append(out, jsonLDPostings(item)...)
			}
		}
	case []any:
		for _, item := range v {
			out = append(out, jsonLDPostings(item)...)
		}
	}
	return out
}

// jsonLDLocation reads jobLocation.address.addressLocality, accepting
// both object and string address forms, and single or array
// jobLocation.
func jsonLDLocation(posting map[string]any) string {
	loc := posting["jobLocation"]
	if arr, ok := loc.([]any); ok && len(arr) > 0 {
		loc = arr[0]
	}
	obj, ok := loc.(map[string]any)
	if !ok {
		return ""
	}
	switch addr := obj["address"].(type) {
	case map[string]any:
		s, _ := addr["addressLocality"].(string)
		return s
	case string:
		return addr
	}
	return ""
}

func workableFromLinks(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("li a[href], a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		m := workableJobPath.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return
		}
		title := cleanText(a.Find("h3, h2, [data-ui=job-title]").First())
		if title == "" {
			title = cleanText(a)
		}
		title, location := splitWorkableText(title)
		if title == "" {
			return
		}
		seen[m[1]] = true

		c := candidate(platform.Workable, title, href, location, baseURL)
		c.ExternalID = m[1]
		out = append(out, c)
	})
	return out
}

// workableFromText is the last resort: list items whose text carries a
// hybrid/remote or Full time/Part time marker.
func workableFromText(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		text := cleanText(li)
		if text == "" || !workableMarkers.MatchString(text) {
			return
		}
		title, location := splitWorkableText(text)
		if title == "" || len(title) > 120 {
			return
		}
		out = append(out, candidate(platform.Workable, title, "", location, baseURL))
	})
	return out
}

// splitWorkableText cuts a combined "Title Hybrid Berlin Full time"
// line at the first employment marker.
func splitWorkableText(text string) (title, location string) {
	loc := workableMarkers.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), ""
	}
	title = strings.TrimSpace(text[:loc[0]])
	rest := strings.TrimSpace(text[loc[1]:])
	rest = workableMarkers.ReplaceAllString(rest, "")
	location = strings.Trim(strings.TrimSpace(rest), ",-· ")
	return title, location
}
