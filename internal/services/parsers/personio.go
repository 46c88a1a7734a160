package parsers

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

// employment-type tokens that Personio appends to the link text; the
// title is everything before the first token.
var personioTypeTokens = []string{
	"Permanent employee", "Fixed-term", "Intern", "Working Student",
	"Trainee", "Full-time", "Part-time", "Full- or part-time",
	"Festanstellung", "Vollzeit", "Teilzeit", "Voll- oder Teilzeit",
	"Werkstudent", "Praktikum", "Ausbildung",
}

var personioTrailingAll = regexp.MustCompile(`(?i)\s*\(all\)\s*$`)

// ParsePersonio extracts jobs from a Personio-hosted board. Listings
// are anchors into /job/<id>; the visible text runs title, employment
// type, then "· location".
func ParsePersonio(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find(`a[href*="/job/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || seen[href] {
			return
		}
		text := cleanText(a)
		if text == "" {
			return
		}

		title := text
		var employment string
		for _, tok := range personioTypeTokens {
			// LastIndex: the title itself may start with the same word
			// ("Werkstudent Marketing Werkstudent · München")
			if i := strings.LastIndex(title, tok); i > 0 {
				employment = tok
				title = title[:i]
				break
			}
		}

		// location follows the middle-dot separator
		var location string
		if i := strings.Index(text, "·"); i >= 0 {
			location = strings.TrimSpace(text[i+len("·"):])
			if j := strings.Index(title, "·"); j >= 0 {
				title = title[:j]
			}
		}

		title = personioTrailingAll.ReplaceAllString(strings.TrimSpace(title), "")
		title = strings.Trim(title, " ·-–")
		if title == "" {
			return
		}
		seen[href] = true

		c := candidate(platform.Personio, title, href, location, baseURL)
		c.EmploymentType = employment
		out = append(out, c)
	})
	return out
}
