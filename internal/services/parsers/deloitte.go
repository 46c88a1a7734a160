package parsers

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

var deloitteJobPath = regexp.MustCompile(`(?i)/job/|/stelle/|/position/|jobdetail`)

// deloitteCities is the closed city list used for best-effort location
// attribution from text near a job link.
var deloitteCities = []string{
	"Berlin", "Hamburg", "München", "Munich", "Köln", "Cologne",
	"Frankfurt", "Stuttgart", "Düsseldorf", "Hannover", "Leipzig",
	"Dresden", "Nürnberg", "Mannheim", "Wien", "Vienna", "Zürich",
	"Zurich", "Magdeburg", "Halle", "Erfurt",
}

// ParseDeloitte extracts jobs from a Deloitte job search page. Links
// match the job-detail path patterns; when the base URL carries a
// search query, results not mentioning the term are dropped.
func ParseDeloitte(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}
	query := deloitteSearchTerm(baseURL)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || !deloitteJobPath.MatchString(href) {
			return
		}
		title := cleanText(a)
		if title == "" || seen[href] {
			return
		}
		if query != "" && !strings.Contains(strings.ToLower(title), query) {
			return
		}
		seen[href] = true

		c := candidate(platform.Deloitte, title, href, deloitteLocation(a), baseURL)
		out = append(out, c)
	})
	return out
}

// deloitteSearchTerm reads the search parameter off the board URL.
func deloitteSearchTerm(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	for _, key := range []string{"searchQuery", "search", "q", "keyword"} {
		if v := u.Query().Get(key); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// deloitteLocation scans the link's surroundings for a known city name.
func deloitteLocation(a *goquery.Selection) string {
	for _, scope := range []*goquery.Selection{a, a.Parent(), a.Parent().Parent()} {
		text := scope.Text()
		for _, city := range deloitteCities {
			if strings.Contains(text, city) {
				return city
			}
		}
	}
	return ""
}
