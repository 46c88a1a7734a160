package parsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

var greenhouseNewBadge = regexp.MustCompile(`(?i)^\s*New\s+`)

// ParseGreenhouse handles both Greenhouse layouts: the new
// job-boards.greenhouse.io table rows and the legacy
// boards.greenhouse.io .opening elements. Jobs are grouped under
// heading-based department sections.
func ParseGreenhouse(doc *goquery.Document, baseURL string) []models.JobCandidate {
	if out := parseGreenhouseTable(doc, baseURL); len(out) > 0 {
		return out
	}
	return parseGreenhouseLegacy(doc, baseURL)
}

// parseGreenhouseTable reads the new layout: rows with a title cell
// (linked) and a location cell, sectioned by department headings.
func parseGreenhouseTable(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find("tr.job-post, div.job-post").Each(func(_ int, row *goquery.Selection) {
		a := row.Find("a").First()
		href, _ := a.Attr("href")
		if href == "" {
			return
		}
		title := cleanText(a.Find("p").First())
		if title == "" {
			title = cleanText(a)
		}
		location := cleanText(row.Find("p").Last())
		if location == title {
			location = ""
		}
		title = greenhouseNewBadge.ReplaceAllString(title, "")
		title = strings.TrimSuffix(title, "New")

		c := candidate(platform.Greenhouse, title, href, location, baseURL)
		c.Department = departmentHeading(row)
		out = append(out, c)
	})
	return out
}

// parseGreenhouseLegacy reads the classic .opening markup.
func parseGreenhouseLegacy(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(".opening").Each(func(_ int, opening *goquery.Selection) {
		a := opening.Find("a").First()
		href, _ := a.Attr("href")
		title := greenhouseNewBadge.ReplaceAllString(cleanText(a), "")
		if href == "" || title == "" {
			return
		}
		location := cleanText(opening.Find(".location").First())

		c := candidate(platform.Greenhouse, title, href, location, baseURL)
		c.Department = departmentHeading(opening)
		out = append(out, c)
	})
	return out
}

// departmentHeading walks back to the nearest section heading above a
// job row.
func departmentHeading(row *goquery.Selection) string {
	for sec := row.Closest("section, div.level-0, div.job-posts"); sec.Length() > 0; sec = sec.Parent().Closest("section, div.level-0") {
		if h := sec.Find("h1, h2, h3, h4").First(); h.Length() > 0 {
			if t := cleanText(h); t != "" {
				return t
			}
		}
		if sec.Parent().Length() == 0 {
			break
		}
	}
	return ""
}
