package parsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

// ParseHRworks extracts jobs from an HRworks board. Offers are
// a.job-offer-content anchors carrying an ?id= query; a sibling div
// holds four "-"-separated metadata fields and the location sits in a
// span next to the i.icomoon-location icon.
func ParseHRworks(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("a.job-offer-content").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || !strings.Contains(href, "id=") || seen[href] {
			return
		}
		title := cleanText(a.Find("h2, h3, .job-title").First())
		if title == "" {
			title = cleanText(a)
		}
		if title == "" {
			return
		}
		seen[href] = true

		var location, employment string
		if icon := a.Find("i.icomoon-location").First(); icon.Length() > 0 {
			location = cleanText(icon.Next())
		}
		if location == "" {
			if icon := a.Parent().Find("i.icomoon-location").First(); icon.Length() > 0 {
				location = cleanText(icon.Next())
			}
		}

		// sibling metadata div: "department - location - type - start"
		meta := cleanText(a.Next())
		if meta != "" && strings.Count(meta, "-") >= 2 {
			fields := strings.Split(meta, "-")
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			if location == "" && len(fields) > 1 {
				location = fields[1]
			}
			if len(fields) > 2 {
				employment = fields[2]
			}
		}

		c := candidate(platform.HRworks, title, href, location, baseURL)
		c.EmploymentType = employment
		out = append(out, c)
	})
	return out
}
