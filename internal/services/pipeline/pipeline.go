// Package pipeline orchestrates one site scan end to end: probe,
// cached-URL fast path, discovery fallback, hybrid extraction,
// enrichment and the persistence sync.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/extract"
	"github.com/ternarybob/jobradar/internal/services/fetch"
)

// staleSuspicionMinJobs is the all-time job count above which a cached
// URL returning zero jobs is treated as broken rather than as the
// company having no openings.
const staleSuspicionMinJobs = 5

// Status classifies a scan outcome.
type Status string

const (
	StatusOK     Status = "ok"
	StatusWarn   Status = "warn"
	StatusFailed Status = "failed"
)

// Outcome is the result of scanning one input URL.
type Outcome struct {
	Domain  string
	Status  Status
	Sync    *models.SyncResult
	Jobs    []models.Job
	Warning string
	Reason  string // set when Status == StatusFailed
}

// Discoverer is the careers-page discovery capability the pipeline
// consumes (satisfied by services/discovery).
type Discoverer interface {
	Discover(ctx context.Context, seedURL string) (string, error)
}

// Pipeline wires the scan flow together. Browser may be nil; the
// pipeline then works on plain HTTP alone.
type Pipeline struct {
	store      interfaces.Store
	http       interfaces.HTTPFetcher
	browser    interfaces.BrowserFetcher
	llm        interfaces.LLMService
	discoverer Discoverer
	hybrid     *extract.Hybrid
	logger     arbor.ILogger
}

func New(store interfaces.Store, httpf interfaces.HTTPFetcher, browser interfaces.BrowserFetcher,
	llm interfaces.LLMService, discoverer Discoverer, hybrid *extract.Hybrid, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		store:      store,
		http:       httpf,
		browser:    browser,
		llm:        llm,
		discoverer: discoverer,
		hybrid:     hybrid,
		logger:     logger,
	}
}

// Scan runs the whole ingest for one input URL. Unreachable domains
// fail fast without mutating persisted state.
func (p *Pipeline) Scan(ctx context.Context, inputURL string) (*Outcome, error) {
	normalized, err := common.NormalizeInputURL(inputURL)
	if err != nil {
		return &Outcome{Status: StatusFailed, Reason: err.Error()}, err
	}
	domain := common.DomainOf(normalized)
	out := &Outcome{Domain: domain}

	if err := p.http.ProbeDomain(ctx, normalized); err != nil {
		out.Status = StatusFailed
		out.Reason = "domain unreachable"
		return out, fmt.Errorf("%s: %w", domain, fetch.ErrDomainUnreachable)
	}

	site, err := p.store.GetSiteByDomain(ctx, domain)
	if err != nil {
		return p.fail(out, err)
	}

	result, finalURL, err := p.extractViaCache(ctx, site)
	if err != nil {
		return p.fail(out, err)
	}

	if result == nil || len(result.Jobs) == 0 {
		result, finalURL, err = p.extractViaDiscovery(ctx, normalized, &site)
		if err != nil {
			return p.fail(out, err)
		}
		if result == nil {
			out.Status = StatusFailed
			out.Reason = "no careers page found"
			return out, nil
		}
	}

	candidates := p.applyFilters(result.Jobs, normalized, finalURL)

	if site == nil {
		site, err = p.store.GetOrCreateSite(ctx, domain, siteName(domain))
		if err != nil {
			return p.fail(out, err)
		}
	}

	jobs := p.enrich(ctx, site, normalized, candidates)

	sync, err := p.store.SyncJobs(ctx, site.ID, jobs)
	if err != nil {
		return p.fail(out, err)
	}
	if err := p.store.TouchSiteScanned(ctx, site.ID); err != nil {
		p.logger.Warn().Err(err).Str("domain", domain).Msg("Failed to record scan time")
	}

	out.Sync = sync
	out.Jobs = jobs
	out.Warning = result.Warning
	out.Status = StatusOK
	if out.Warning != "" {
		out.Status = StatusWarn
	}
	p.logger.Info().
		Str("domain", domain).
		Int("jobs", len(jobs)).
		Int("new", len(sync.New)).
		Int("removed", len(sync.Removed)).
		Str("status", string(out.Status)).
		Msg("Site scan complete")
	return out, nil
}

func (p *Pipeline) fail(out *Outcome, err error) (*Outcome, error) {
	out.Status = StatusFailed
	out.Reason = err.Error()
	return out, err
}

// extractViaCache tries the site's cached career URLs. A cached URL
// yielding zero jobs on a site with history is suspicious: it is marked
// failed and the caller falls back to discovery.
func (p *Pipeline) extractViaCache(ctx context.Context, site *models.Site) (*extract.Result, string, error) {
	if site == nil {
		return nil, "", nil
	}
	urls, err := p.store.ActiveCareerURLs(ctx, site.ID)
	if err != nil {
		return nil, "", err
	}

	for _, u := range urls {
		result, finalURL, err := p.extractURL(ctx, u.URL)
		if err != nil {
			if errors.Is(err, fetch.ErrDomainUnreachable) {
				return nil, "", err
			}
			p.logger.Warn().Err(err).Str("url", u.URL).Msg("Cached URL extraction failed")
		}

		if result != nil && len(result.Jobs) > 0 {
			if err := p.store.MarkURLSuccess(ctx, u.ID); err != nil {
				p.logger.Warn().Err(err).Int64("url_id", u.ID).Msg("Failed to record URL success")
			}
			return result, finalURL, nil
		}

		count, cerr := p.store.CountJobs(ctx, site.ID)
		if cerr == nil && count > staleSuspicionMinJobs {
			p.logger.Warn().
				Str("url", u.URL).
				Int("historic_jobs", count).
				Msg("Cached URL returned zero jobs on a site with history, marking failed")
			if _, ferr := p.store.MarkURLFailed(ctx, u.ID); ferr != nil {
				p.logger.Warn().Err(ferr).Int64("url_id", u.ID).Msg("Failed to record URL failure")
			}
			continue
		}

		// zero jobs on a site without history is a legitimate result
		if result != nil {
			if err := p.store.MarkURLSuccess(ctx, u.ID); err != nil {
				p.logger.Warn().Err(err).Int64("url_id", u.ID).Msg("Failed to record URL success")
			}
			return result, finalURL, nil
		}
	}
	return nil, "", nil
}

// extractViaDiscovery finds the careers page from scratch and persists
// the discovered URL for the next run.
func (p *Pipeline) extractViaDiscovery(ctx context.Context, normalized string, site **models.Site) (*extract.Result, string, error) {
	careersURL, err := p.discoverer.Discover(ctx, normalized)
	if err != nil {
		return nil, "", err
	}
	if careersURL == "" {
		return nil, "", nil
	}

	result, finalURL, err := p.extractURL(ctx, careersURL)
	if err != nil {
		return nil, "", err
	}
	if result == nil {
		return nil, "", nil
	}

	if *site == nil {
		domain := common.DomainOf(normalized)
		created, err := p.store.GetOrCreateSite(ctx, domain, siteName(domain))
		if err != nil {
			return nil, "", err
		}
		*site = created
	}

	stored := finalURL
	if stored == "" {
		stored = careersURL
	}
	if canonical := common.CanonicalizeCareerURL(stored); canonical != "" {
		if _, err := p.store.SaveCareerURL(ctx, (*site).ID, canonical, result.Platform); err != nil {
			p.logger.Warn().Err(err).Str("url", canonical).Msg("Failed to persist career URL")
		}
	}
	return result, finalURL, nil
}

// extractURL fetches a careers URL (HTTP first, browser when the page
// is a script shell) and runs hybrid extraction on it.
func (p *Pipeline) extractURL(ctx context.Context, careersURL string) (*extract.Result, string, error) {
	html, finalURL, err := p.fetchPage(ctx, careersURL)
	if err != nil {
		return nil, finalURL, err
	}
	if strings.TrimSpace(html) == "" {
		return nil, finalURL, nil
	}
	result, err := p.hybrid.ExtractFromHTML(ctx, finalURL, html, p.paginationFetcher())
	if err != nil {
		return nil, finalURL, err
	}
	return result, finalURL, nil
}

// fetchPage returns rendered page HTML and the final URL after any
// redirects or click-throughs.
func (p *Pipeline) fetchPage(ctx context.Context, url string) (string, string, error) {
	html, err := p.http.Get(ctx, url)
	if err != nil {
		return "", url, err
	}
	if html != "" && !scriptShell(html) {
		finalURL, _, rerr := p.http.DetectRedirect(ctx, url)
		if rerr != nil || finalURL == "" {
			finalURL = url
		}
		return html, finalURL, nil
	}

	if p.browser == nil {
		return html, url, nil
	}
	page, err := p.browser.FetchWithNavigation(ctx, url)
	if err != nil {
		return "", url, err
	}
	if page == nil {
		return html, url, nil
	}
	defer page.Close()
	return page.HTML, page.FinalURL, nil
}

// paginationFetcher serves next-page loads inside the extraction loop.
func (p *Pipeline) paginationFetcher() extract.PageFetcher {
	return func(ctx context.Context, url string) (string, error) {
		html, _, err := p.fetchPage(ctx, url)
		return html, err
	}
}

// enrich converts candidates to jobs, translating titles and filling
// the company description in parallel (one LLM call each).
func (p *Pipeline) enrich(ctx context.Context, site *models.Site, homepageURL string, candidates []models.JobCandidate) []models.Job {
	jobs := make([]models.Job, 0, len(candidates))
	for _, c := range candidates {
		jobs = append(jobs, candidateToJob(site, c))
	}
	if p.llm == nil {
		return jobs
	}

	g, gctx := errgroup.WithContext(ctx)

	if len(jobs) > 0 {
		titles := make([]string, len(jobs))
		for i := range jobs {
			titles[i] = jobs[i].Title
		}
		g.Go(func() error {
			translated, err := p.llm.TranslateTitles(gctx, titles)
			if err != nil || len(translated) != len(jobs) {
				return nil // dictionary fallback already happened inside
			}
			for i := range jobs {
				jobs[i].TitleEN = translated[i]
			}
			return nil
		})
	}

	if site.Description == "" {
		g.Go(func() error {
			homepage, err := p.http.Get(gctx, homepageURL)
			if err != nil || homepage == "" {
				return nil
			}
			desc, err := p.llm.ExtractCompanyInfo(gctx, homepageURL, homepage)
			if err != nil || desc == "" {
				return nil
			}
			if err := p.store.UpdateSiteDescription(gctx, site.ID, desc); err != nil {
				p.logger.Warn().Err(err).Str("domain", site.Domain).Msg("Failed to store company description")
			} else {
				site.Description = desc
			}
			return nil
		})
	}

	_ = g.Wait()
	return jobs
}

func candidateToJob(site *models.Site, c models.JobCandidate) models.Job {
	company := c.Company
	if company == "" {
		company = site.Name
	}
	details := map[string]any{"confidence": c.Confidence}
	if c.URL != "" {
		details["source_url"] = c.URL
	}
	if c.Department != "" {
		details["department"] = c.Department
	}
	for k, v := range c.Signals {
		details[k] = v
	}
	return models.Job{
		SiteID:         site.ID,
		ExternalID:     c.ExternalID,
		Title:          c.Title,
		Company:        company,
		Location:       c.Location,
		URL:            c.URL,
		EmploymentType: c.EmploymentType,
		Method:         c.Source,
		Details:        details,
	}
}

// siteName derives a display name from the domain base.
func siteName(domain string) string {
	variants := common.CompanyNameVariants(domain)
	if len(variants) == 0 {
		return domain
	}
	return variants[0]
}

var scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)

// scriptShell reports whether a page is mostly script payload with no
// server-rendered content, the signature of an SPA shell that needs the
// browser.
func scriptShell(html string) bool {
	total := len(html)
	if total == 0 {
		return true
	}
	scripts := 0
	for _, m := range scriptBlockRe.FindAllStringIndex(html, -1) {
		scripts += m[1] - m[0]
	}
	return float64(scripts)/float64(total) > 0.2
}
