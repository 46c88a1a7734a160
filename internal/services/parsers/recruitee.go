package parsers

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

var recruiteeOffersRe = regexp.MustCompile(`"offers"\s*:\s*\[`)

// recruiteeOffer mirrors the fields we read from Recruitee's embedded
// initial state and from the public /api/offers endpoint.
type recruiteeOffer struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Location   string `json:"location"`
	City       string `json:"city"`
	Department string `json:"department"`
	CareersURL string `json:"careers_url"`
	URL        string `json:"url"`
	Slug       string `json:"slug"`
}

// ParseRecruitee extracts jobs from a Recruitee board. Preference
// order: the embedded initial-state JSON with an "offers" array, then
// anchors matching the /o/ offer path.
func ParseRecruitee(doc *goquery.Document, baseURL string) []models.JobCandidate {
	if out := recruiteeFromState(doc, baseURL); len(out) > 0 {
		return out
	}
	return recruiteeFromAnchors(doc, baseURL)
}

func recruiteeFromState(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		loc := recruiteeOffersRe.FindStringIndex(text)
		if loc == nil {
			return true
		}
		raw := balancedArray(text[loc[1]-1:])
		if raw == "" {
			return true
		}
		var offers []recruiteeOffer
		if err := json.Unmarshal([]byte(raw), &offers); err != nil {
			return true
		}
		out = offersToCandidates(offers, baseURL)
		return len(out) == 0
	})
	return out
}

// ParseRecruiteeOffers decodes the /api/offers JSON body. The endpoint
// returns {"offers":[...]}.
func ParseRecruiteeOffers(body, baseURL string) []models.JobCandidate {
	var payload struct {
		Offers []recruiteeOffer `json:"offers"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil
	}
	return FilterNonJobs(offersToCandidates(payload.Offers, baseURL))
}

func offersToCandidates(offers []recruiteeOffer, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	for _, o := range offers {
		if o.Title == "" {
			continue
		}
		href := o.CareersURL
		if href == "" {
			href = o.URL
		}
		if href == "" && o.Slug != "" {
			href = "/o/" + o.Slug
		}
		location := o.Location
		if location == "" {
			location = o.City
		}
		c := candidate(platform.Recruitee, o.Title, href, location, baseURL)
		c.Department = o.Department
		if o.ID != 0 {
			c.ExternalID = strconv.FormatInt(o.ID, 10)
		}
		out = append(out, c)
	}
	return out
}

func recruiteeFromAnchors(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find(`a[href*="/o/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		title := cleanText(a)
		if href == "" || title == "" || seen[href] {
			return
		}
		seen[href] = true
		out = append(out, candidate(platform.Recruitee, title, href, "", baseURL))
	})
	return out
}

// balancedArray returns the balanced [...] JSON array starting at s[0],
// respecting string literals and escapes.
func balancedArray(s string) string {
	if s == "" || s[0] != '[' {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
