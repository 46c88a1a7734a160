package parsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

var hibobSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

// ParseHiBob extracts jobs from a HiBob careers widget. Listings are
// custom b-virtual-scroll-list-item elements; the metadata line is
// "department · location · type · mode". HiBob renders no per-job
// anchors, so the URL is synthesized from the title slug.
func ParseHiBob(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find("b-virtual-scroll-list-item").Each(func(_ int, item *goquery.Selection) {
		title := cleanText(item.Find("h3, h4, [class*=title]").First())
		if title == "" {
			// fall back to first text line of the item
			lines := strings.Split(strings.TrimSpace(item.Text()), "\n")
			if len(lines) > 0 {
				title = strings.TrimSpace(lines[0])
			}
		}
		if title == "" {
			return
		}

		var department, location, employment, mode string
		item.Find("div").EachWithBreak(func(_ int, d *goquery.Selection) bool {
			text := cleanText(d)
			if !strings.Contains(text, "·") || strings.Contains(text, title) {
				return true
			}
			parts := strings.Split(text, "·")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			if len(parts) > 0 {
				department = parts[0]
			}
			if len(parts) > 1 {
				location = parts[1]
			}
			if len(parts) > 2 {
				employment = parts[2]
			}
			if len(parts) > 3 {
				mode = parts[3]
			}
			return false
		})

		c := candidate(platform.HiBob, title, hibobURL(baseURL, title), location, baseURL)
		c.Department = department
		c.EmploymentType = employment
		if mode != "" {
			c.Signal("work_mode", mode)
		}
		out = append(out, c)
	})
	return out
}

// hibobURL synthesizes a position URL from the title slug.
func hibobURL(baseURL, title string) string {
	slug := hibobSlugRe.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	base := strings.TrimSuffix(baseURL, "/")
	return base + "/position/" + slug
}
