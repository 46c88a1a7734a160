// Package discovery locates a company's careers page starting from any
// URL on its domain. Strategies run in a fixed order from cheapest to
// most expensive and short-circuit on the first hit; the LLM is the
// last resort, not the first.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
)

// careerSubdomains are probed against the registrable domain before
// anything else; a dedicated jobs host is the strongest signal there is.
var careerSubdomains = []string{
	"jobs", "careers", "karriere", "stellen", "join", "work", "hiring", "career",
}

// alternativePaths is the brute-force guess list, ordered by how often
// each shape occurs in the wild.
var alternativePaths = []string{
	"/careers", "/career", "/jobs", "/job",
	"/karriere", "/stellenangebote", "/stellen", "/jobs-karriere",
	"/careers.html", "/career.html", "/jobs.html", "/karriere.html",
	"/stellenangebote.html", "/stellen.html",
	"/en/careers", "/en/jobs", "/en/career",
	"/de/karriere", "/de/jobs", "/de/stellenangebote",
	"/about/careers", "/company/careers", "/company/jobs",
	"/join-us", "/join", "/work-with-us", "/working-at",
	"/vacancies", "/vacancy", "/recruitment",
}

// careerURLRe matches career-page shapes in URLs and hrefs (English,
// German, Russian).
var careerURLRe = regexp.MustCompile(`(?i)(career|karriere|jobs?\b|stellen(angebote)?|vacanc|recruit|join[-_]?us|work[-_]with[-_]us|вакансии|рабо[тч])`)

// careerTextRe matches career-link anchor text.
var careerTextRe = regexp.MustCompile(`(?i)^(careers?|jobs?|karriere|stellenangebote|offene stellen|wir suchen|join (us|our team)|work (with|for) us|vacancies|вакансии|работа у нас|работа)\s*$`)

// jobListingSuffixRe marks URLs that point straight at a listing, which
// outrank general careers landing pages.
var jobListingSuffixRe = regexp.MustCompile(`(?i)/(jobs|stellen(angebote)?|vacancies|openings|positions)/?$`)

// Discoverer finds careers pages. The LLM service may be nil, in which
// case strategy 5 is skipped.
type Discoverer struct {
	http   interfaces.HTTPFetcher
	llm    interfaces.LLMService
	logger arbor.ILogger
}

func New(http interfaces.HTTPFetcher, llm interfaces.LLMService, logger arbor.ILogger) *Discoverer {
	return &Discoverer{http: http, llm: llm, logger: logger}
}

// Discover returns the careers-page URL for the site at seedURL, or ""
// when every strategy comes up empty. A DomainUnreachable error from
// the probe aborts immediately.
func (d *Discoverer) Discover(ctx context.Context, seedURL string) (string, error) {
	normalized, err := common.NormalizeInputURL(seedURL)
	if err != nil {
		return "", fmt.Errorf("invalid seed url %q: %w", seedURL, err)
	}
	base, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("invalid seed url %q: %w", seedURL, err)
	}

	if found := d.probeSubdomains(ctx, base); found != "" {
		d.logger.Info().Str("url", found).Msg("Careers page found via subdomain probe")
		return found, nil
	}

	sitemapURLs := d.collectSitemapURLs(ctx, base)
	if found := bestCareerMatch(sitemapURLs); found != "" {
		d.logger.Info().Str("url", found).Msg("Careers page found via sitemap")
		return found, nil
	}

	homepage, err := d.http.Get(ctx, base.String())
	if err != nil {
		return "", err
	}
	if found := d.scanHomepage(homepage, base); found != "" {
		d.logger.Info().Str("url", found).Msg("Careers page found via homepage link")
		return d.refineBoard(ctx, found), nil
	}

	if found := d.bruteForcePaths(ctx, base); found != "" {
		d.logger.Info().Str("url", found).Msg("Careers page found via path guess")
		return d.refineBoard(ctx, found), nil
	}

	if d.llm != nil && homepage != "" {
		found, err := d.llm.FindCareersPage(ctx, base.String(), homepage, sitemapURLs)
		if err != nil {
			d.logger.Warn().Err(err).Str("url", base.String()).Msg("LLM careers-page lookup failed")
		} else if found != "" {
			if resolved := common.ResolveURL(base.String(), found); resolved != "" {
				d.logger.Info().Str("url", resolved).Msg("Careers page found via LLM")
				return resolved, nil
			}
		}
	}

	return "", nil
}

// probeSubdomains checks jobs.example.com and friends on the eTLD+1.
func (d *Discoverer) probeSubdomains(ctx context.Context, base *url.URL) string {
	apex := common.RegistrableDomain(base.Hostname())
	if apex == "" {
		return ""
	}
	for _, sub := range careerSubdomains {
		candidate := base.Scheme + "://" + sub + "." + apex
		if err := d.http.ProbeDomain(ctx, candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// scanHomepage returns the first anchor whose href or text looks like a
// careers link, resolved against the base.
func (d *Discoverer) scanHomepage(html string, base *url.URL) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		text := strings.TrimSpace(a.Text())
		if careerURLRe.MatchString(href) || careerTextRe.MatchString(text) {
			found = common.ResolveURL(base.String(), href)
			return found == ""
		}
		return true
	})
	return found
}

// refineBoard hops from a careers landing page to the job board it
// links to, when the two differ. URLs that already carry a listing
// suffix are trusted as-is; on any failure the landing page stands.
func (d *Discoverer) refineBoard(ctx context.Context, pageURL string) string {
	if d.llm == nil || jobListingSuffixRe.MatchString(pageURL) {
		return pageURL
	}
	html, err := d.http.Get(ctx, pageURL)
	if err != nil || html == "" {
		return pageURL
	}
	links := pageLinks(html, pageURL)
	if len(links) == 0 {
		return pageURL
	}

	board, err := d.llm.FindJobBoard(ctx, pageURL, links)
	if err != nil {
		d.logger.Warn().Err(err).Str("url", pageURL).Msg("LLM job-board lookup failed")
		return pageURL
	}
	resolved := common.ResolveURL(pageURL, board)
	if board == "" || resolved == "" || resolved == pageURL {
		return pageURL
	}
	d.logger.Info().Str("from", pageURL).Str("url", resolved).Msg("Careers page refined to job board")
	return resolved
}

// pageLinks collects up to 100 distinct resolved hrefs from a page, in
// document order.
func pageLinks(html, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return true
		}
		resolved := common.ResolveURL(baseURL, href)
		if resolved == "" || seen[resolved] {
			return true
		}
		seen[resolved] = true
		out = append(out, resolved)
		return len(out) < 100
	})
	return out
}

// bruteForcePaths guesses common careers paths, returning the first
// that serves a non-empty 200.
func (d *Discoverer) bruteForcePaths(ctx context.Context, base *url.URL) string {
	root := base.Scheme + "://" + base.Host
	for _, path := range alternativePaths {
		candidate := root + path
		body, err := d.http.Get(ctx, candidate)
		if err != nil {
			return "" // unreachable mid-walk: stop guessing
		}
		if body != "" {
			return candidate
		}
	}
	return ""
}

// bestCareerMatch ranks candidate URLs: career-pattern matches only,
// listing suffixes beat landing pages, then fewer path segments, then
// shorter overall.
func bestCareerMatch(urls []string) string {
	var best string
	var bestScore int
	for _, u := range urls {
		if !careerURLRe.MatchString(u) {
			continue
		}
		score := scoreCareerURL(u)
		if best == "" || score > bestScore {
			best, bestScore = u, score
		}
	}
	return best
}

func scoreCareerURL(u string) int {
	score := 0
	if jobListingSuffixRe.MatchString(u) {
		score += 10_000
	}
	segments := 0
	if parsed, err := url.Parse(u); err == nil {
		segments = len(strings.Split(strings.Trim(parsed.Path, "/"), "/"))
	}
	score -= segments * 100
	score -= len(u)
	return score
}

// morph pairs for GenerateURLVariants; each side only matches at a
// path-segment boundary so /stellenangebote is not mangled.
var urlMorphs = []struct {
	singular *regexp.Regexp
	plural   *regexp.Regexp
	sWord    string
	pWord    string
}{
	{segmentRe("job"), segmentRe("jobs"), "job", "jobs"},
	{segmentRe("career"), segmentRe("careers"), "career", "careers"},
	{segmentRe("stelle"), segmentRe("stellen"), "stelle", "stellen"},
	{segmentRe("vacancy"), segmentRe("vacancies"), "vacancy", "vacancies"},
	{segmentRe("position"), segmentRe("positions"), "position", "positions"},
}

func segmentRe(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)/` + word + `([./?#-]|$)`)
}

// GenerateURLVariants produces singular/plural morphs of a careers URL
// for retry after a 404 (e.g. /job.html <-> /jobs.html).
func GenerateURLVariants(rawURL string) []string {
	seen := map[string]bool{rawURL: true}
	var out []string
	add := func(v string) {
		if v != "" && v != rawURL && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, m := range urlMorphs {
		if m.plural.MatchString(rawURL) {
			add(m.plural.ReplaceAllString(rawURL, "/"+m.sWord+"$1"))
		} else if m.singular.MatchString(rawURL) {
			add(m.singular.ReplaceAllString(rawURL, "/"+m.pWord+"$1"))
		}
	}
	return out
}
