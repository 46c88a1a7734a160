package parsers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

// ParseOdoo extracts jobs from an Odoo website-recruitment page. Jobs
// live under .oe_website_jobs or the newer
// .o_website_hr_recruitment_jobs_list container; detail links match
// /jobs/detail/.
func ParseOdoo(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	containers := doc.Find(".oe_website_jobs, .o_website_hr_recruitment_jobs_list")
	if containers.Length() == 0 {
		containers = doc.Selection
	}

	containers.Find(`a[href*="/jobs/detail/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title := cleanText(a)
		if title == "" {
			// card layouts link the whole tile; the heading holds the title
			title = cleanText(a.Closest("div").Find("h3, h4, h5").First())
		}
		if href == "" || title == "" || seen[href] {
			return
		}
		seen[href] = true

		location := cleanText(a.Closest("div.card, div[class*=job]").Find(".o_job_address, .js_location, .text-muted").First())
		if strings.EqualFold(location, title) {
			location = ""
		}
		out = append(out, candidate(platform.Odoo, title, href, location, baseURL))
	})
	return out
}
