package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/parsers"
	"github.com/ternarybob/jobradar/internal/services/platform"
)

// MaxPaginationPages caps the pagination loop per careers URL.
const MaxPaginationPages = 10

// PageFetcher loads one page and returns its rendered HTML. The
// pipeline decides whether that means plain HTTP or the browser.
type PageFetcher func(ctx context.Context, url string) (string, error)

// Result is the outcome of extracting one careers URL.
type Result struct {
	Jobs     []models.JobCandidate
	Platform string // detected platform tag, "" when generic
	Pages    int
	Warning  string // set when the pagination cap was hit
}

// Hybrid orchestrates the extraction strategy order: platform-specific
// ATS parser, Schema.org markup, PDF filenames, then the LLM with a
// duplicate-terminated pagination loop.
type Hybrid struct {
	llm      interfaces.LLMService
	httpGet  PageFetcher // plain HTTP, used for API-based platforms
	maxPages int
	logger   arbor.ILogger
}

// NewHybrid creates the hybrid extractor. httpGet is used only for
// JSON API endpoints of API-based platforms; page HTML always comes in
// through Extract's fetch argument.
func NewHybrid(llm interfaces.LLMService, httpGet PageFetcher, maxPages int, logger arbor.ILogger) *Hybrid {
	if maxPages <= 0 {
		maxPages = MaxPaginationPages
	}
	return &Hybrid{llm: llm, httpGet: httpGet, maxPages: maxPages, logger: logger}
}

// Extract pulls all jobs reachable from a careers URL. The first page
// is fetched with fetch; ATS-parsed boards return their full listing in
// one shot, all other strategies run the pagination loop.
func (h *Hybrid) Extract(ctx context.Context, careersURL string, fetch PageFetcher) (*Result, error) {
	html, err := fetch(ctx, careersURL)
	if err != nil {
		return nil, err
	}
	return h.ExtractFromHTML(ctx, careersURL, html, fetch)
}

// ExtractFromHTML is Extract for a page whose HTML the caller already
// holds (the browser fetcher hands back rendered HTML).
func (h *Hybrid) ExtractFromHTML(ctx context.Context, careersURL, html string, fetch PageFetcher) (*Result, error) {
	tag := platform.Detect(careersURL, html)

	// ATS parsers return the full listing and bypass pagination.
	if tag != "" {
		jobs, err := h.extractPlatform(ctx, tag, careersURL, html)
		if err == nil && len(jobs) > 0 {
			h.logger.Debug().
				Str("url", careersURL).
				Str("platform", tag).
				Int("jobs", len(jobs)).
				Msg("Extracted via platform parser")
			return &Result{Jobs: Dedup(jobs, careersURL), Platform: tag, Pages: 1}, nil
		}
		if err != nil {
			h.logger.Warn().Err(err).Str("platform", tag).Msg("Platform extraction failed, falling through")
		}
	}

	if jobs := SchemaOrgJobs(html, careersURL); len(jobs) > 0 {
		return &Result{Jobs: Dedup(jobs, careersURL), Pages: 1}, nil
	}
	if jobs := pdfJobs(html, careersURL); len(jobs) > 0 {
		return &Result{Jobs: Dedup(jobs, careersURL), Pages: 1}, nil
	}

	return h.extractLLMPaginated(ctx, careersURL, html, fetch)
}

// extractPlatform runs the ATS parser for a tag, going through the
// platform's JSON API when it has one.
func (h *Hybrid) extractPlatform(ctx context.Context, tag, pageURL, html string) ([]models.JobCandidate, error) {
	if platform.APIBased(tag) && h.httpGet != nil {
		if jobs, err := h.extractAPI(ctx, tag, pageURL); err == nil && len(jobs) > 0 {
			return jobs, nil
		}
		// fall back to DOM parsing on API failure
	}
	jobs, ok := parsers.Parse(tag, html, pageURL)
	if !ok {
		return nil, fmt.Errorf("no parser for platform %q", tag)
	}
	return jobs, nil
}

// extractAPI fetches the platform's offers endpoint. Currently only
// Recruitee is API-based.
func (h *Hybrid) extractAPI(ctx context.Context, tag, pageURL string) ([]models.JobCandidate, error) {
	switch tag {
	case platform.Recruitee:
		apiURL := strings.TrimSuffix(pageURL, "/") + "/api/offers"
		body, err := h.httpGet(ctx, apiURL)
		if err != nil {
			return nil, err
		}
		return parsers.ParseRecruiteeOffers(body, pageURL), nil
	}
	return nil, fmt.Errorf("platform %q has no API endpoint", tag)
}

// extractLLMPaginated runs the LLM over the page and follows
// next_page_url until the page limit, a missing next URL, or a page
// consisting entirely of already-seen jobs.
func (h *Hybrid) extractLLMPaginated(ctx context.Context, startURL, firstHTML string, fetch PageFetcher) (*Result, error) {
	if h.llm == nil {
		h.logger.Warn().Str("url", startURL).Msg("No LLM configured, structured strategies found nothing")
		return &Result{Warning: "no llm configured"}, nil
	}
	res := &Result{}
	set := newDedupSet()

	pageURL, html := startURL, firstHTML
	for page := 1; page <= h.maxPages; page++ {
		extracted, err := h.llm.ExtractJobs(ctx, pageURL, html)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			h.logger.Warn().Err(err).Str("url", pageURL).Msg("Pagination page failed, keeping collected jobs")
			break
		}
		res.Pages = page

		newOnPage := 0
		for _, c := range parsers.FilterNonJobs(extracted.Jobs) {
			if set.Add(c, pageURL) {
				res.Jobs = append(res.Jobs, c)
				newOnPage++
			}
		}

		// a page of pure duplicates means the pagination ring looped
		if len(extracted.Jobs) > 0 && newOnPage == 0 && page > 1 {
			h.logger.Debug().Str("url", pageURL).Msg("All jobs on page already seen, terminating pagination")
			break
		}
		if extracted.NextPageURL == "" {
			break
		}
		if page == h.maxPages {
			res.Warning = fmt.Sprintf("pagination limit reached, next page not fetched: %s", extracted.NextPageURL)
			h.logger.Warn().Str("next_url", extracted.NextPageURL).Int("pages", page).Msg("Pagination limit reached")
			break
		}

		pageURL = extracted.NextPageURL
		html, err = fetch(ctx, pageURL)
		if err != nil {
			h.logger.Warn().Err(err).Str("url", pageURL).Msg("Failed to fetch next page, keeping collected jobs")
			break
		}
	}

	if len(res.Jobs) == 0 {
		res.Jobs = h.jobsFromBareURLs(ctx, startURL, firstHTML)
	}
	return res, nil
}

// jobsFromBareURLs is the last resort when full extraction yields
// nothing: ask only for the posting-detail URLs on the page and derive
// titles from their slugs. Low confidence, no location or department.
func (h *Hybrid) jobsFromBareURLs(ctx context.Context, pageURL, html string) []models.JobCandidate {
	urls, err := h.llm.FindJobURLs(ctx, pageURL, html)
	if err != nil {
		h.logger.Warn().Err(err).Str("url", pageURL).Msg("Job-URL fallback failed")
		return nil
	}
	var out []models.JobCandidate
	for _, u := range urls {
		resolved := common.ResolveURL(pageURL, u)
		title := parsers.TitleFromSlug(resolved)
		if resolved == "" || title == "" {
			continue
		}
		c := models.JobCandidate{
			Title:      title,
			URL:        resolved,
			Source:     models.ExtractionLLM,
			Confidence: 0.4,
		}
		c.Signal("title_from", "url_slug")
		out = append(out, c)
	}
	out = Dedup(parsers.FilterNonJobs(out), pageURL)
	if len(out) > 0 {
		h.logger.Debug().Str("url", pageURL).Int("jobs", len(out)).Msg("Derived jobs from bare posting URLs")
	}
	return out
}

// pdfJobs adapts the pure PDF-filename parser to raw HTML input.
func pdfJobs(html, baseURL string) []models.JobCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return parsers.ParsePDFLinks(doc, baseURL)
}
