package pipeline

import (
	"net/url"
	"strings"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/models"
)

// searchParams are query parameters that mark an external board URL as
// a search result rather than a full listing.
var searchParams = []string{"search", "query", "keyword", "keywords", "q", "term"}

// applyFilters post-processes extracted candidates against the input
// domain. Both filters only fire when the final URL left the input's
// registrable domain; on-domain navigation is never filtered.
func (p *Pipeline) applyFilters(candidates []models.JobCandidate, inputURL, finalURL string) []models.JobCandidate {
	if finalURL == "" || common.SameRegistrableDomain(inputURL, finalURL) {
		return candidates
	}

	filtered := p.sourceCompanyFilter(candidates, inputURL)
	return p.searchTermFilter(filtered, finalURL)
}

// sourceCompanyFilter keeps only jobs whose combined text mentions a
// morphological variant of the input domain's base name. Shared ATS
// boards list many companies; without this an external board leaks
// every tenant's jobs into one site.
func (p *Pipeline) sourceCompanyFilter(candidates []models.JobCandidate, inputURL string) []models.JobCandidate {
	variants := common.CompanyNameVariants(inputURL)
	if len(variants) == 0 {
		return candidates
	}

	kept := make([]models.JobCandidate, 0, len(candidates))
	for _, c := range candidates {
		text := strings.ToLower(c.Title + " " + c.Location + " " + c.Company + " " + c.URL)
		for _, v := range variants {
			if strings.Contains(text, v) {
				kept = append(kept, c)
				break
			}
		}
	}
	if len(kept) == 0 {
		// every job filtered away usually means the board is dedicated
		// to this company and simply never repeats its name
		p.logger.Debug().Str("input", inputURL).Msg("Source-company filter matched nothing, keeping all")
		return candidates
	}
	if len(kept) < len(candidates) {
		p.logger.Debug().
			Int("kept", len(kept)).
			Int("dropped", len(candidates)-len(kept)).
			Msg("Source-company filter applied")
	}
	return kept
}

// searchTermFilter applies the search/query/keyword parameter of an
// external board URL as a title filter. A zero-survivor filter is
// discarded, the term was probably decorative.
func (p *Pipeline) searchTermFilter(candidates []models.JobCandidate, finalURL string) []models.JobCandidate {
	term := searchTermOf(finalURL)
	if term == "" {
		return candidates
	}

	needle := strings.ToLower(term)
	kept := make([]models.JobCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Title), needle) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return candidates
	}
	if len(kept) < len(candidates) {
		p.logger.Debug().
			Str("term", term).
			Int("kept", len(kept)).
			Msg("Search-term filter applied")
	}
	return kept
}

func searchTermOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, p := range searchParams {
		if v := strings.TrimSpace(q.Get(p)); v != "" {
			return v
		}
	}
	return ""
}
