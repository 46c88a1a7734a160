package parsers

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

// ParseLever extracts jobs from a Lever board: .posting elements with
// title, location and categories as child selectors.
func ParseLever(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate

	doc.Find(".posting").Each(func(_ int, posting *goquery.Selection) {
		title := cleanText(posting.Find("h5, .posting-title > h5, [data-qa=posting-name]").First())
		if title == "" {
			title = cleanText(posting.Find(".posting-title").First())
		}
		href, _ := posting.Find("a.posting-title, a[href]").First().Attr("href")
		if title == "" || href == "" {
			return
		}
		location := cleanText(posting.Find(".posting-categories .sort-by-location, .location").First())
		department := cleanText(posting.Find(".posting-categories .sort-by-team, .department").First())

		c := candidate(platform.Lever, title, href, location, baseURL)
		c.Department = department
		out = append(out, c)
	})
	return out
}
