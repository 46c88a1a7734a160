package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/models"
)

// fakeLLM scripts ExtractJobs responses per page URL; it panics when
// called unexpectedly so tests can assert the LLM was bypassed.
type fakeLLM struct {
	pages   map[string]*interfaces.ExtractResult
	jobURLs []string
}

func (f *fakeLLM) ExtractJobs(_ context.Context, pageURL, _ string) (*interfaces.ExtractResult, error) {
	res, ok := f.pages[pageURL]
	if !ok {
		panic("unexpected LLM call for " + pageURL)
	}
	return res, nil
}

func (f *fakeLLM) FindCareersPage(context.Context, string, string, []string) (string, error) {
	panic("unexpected FindCareersPage call")
}

func (f *fakeLLM) FindJobBoard(context.Context, string, []string) (string, error) {
	panic("unexpected FindJobBoard call")
}

func (f *fakeLLM) FindJobURLs(context.Context, string, string) ([]string, error) {
	if f.jobURLs == nil {
		panic("unexpected FindJobURLs call")
	}
	return f.jobURLs, nil
}

func (f *fakeLLM) TranslateTitles(_ context.Context, titles []string) ([]string, error) {
	return titles, nil
}

func (f *fakeLLM) ExtractCompanyInfo(context.Context, string, string) (string, error) {
	return "", nil
}

func noFetch(_ context.Context, url string) (string, error) {
	panic("unexpected fetch of " + url)
}

func TestSchemaOrgCardinality(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@context":"https://schema.org","@type":"WebSite","name":"Acme"}</script>
	<script type="application/ld+json">[
		{"@type":"JobPosting","title":"Engineer A","url":"/jobs/a","jobLocation":{"address":{"addressLocality":"Berlin"}}},
		{"@type":"JobPosting","title":"Engineer B","url":"/jobs/b","jobLocation":{"address":"Hamburg"}},
		{"@type":"JobPosting","title":"Engineer C","hiringOrganization":{"name":"Acme"}}
	]</script>
	</head><body></body></html>`

	jobs := SchemaOrgJobs(html, "https://acme.de/careers")
	require.Len(t, jobs, 3)
	assert.Equal(t, "Berlin", jobs[0].Location)
	assert.Equal(t, "https://acme.de/jobs/a", jobs[0].URL)
	assert.Equal(t, "Hamburg", jobs[1].Location)
	assert.Equal(t, "Acme", jobs[2].Company)
	for _, j := range jobs {
		assert.Equal(t, models.ExtractionSchemaOrg, j.Source)
	}
}

func TestSchemaOrgMalformedBlockIgnored(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{not json</script>
	<script type="application/ld+json">{"@type":"JobPosting","title":"Engineer"}</script>
	</head></html>`
	jobs := SchemaOrgJobs(html, "https://acme.de")
	assert.Len(t, jobs, 1)
}

func TestDedupSelfReferencingURLFallsBackToKey(t *testing.T) {
	page := "https://4zero.example/jobs"
	in := []models.JobCandidate{
		{Title: "Design Developer", URL: "#"},
		{Title: "Frontend Developer", URL: "#"},
		{Title: "Backend Developer", URL: page + "/"},
		{Title: "Software Developer", URL: page + "#apply"},
	}
	out := Dedup(in, page)
	assert.Len(t, out, 4, "all four rows survive on the (title,location) fallback")
}

func TestDedupByURLDominates(t *testing.T) {
	in := []models.JobCandidate{
		{Title: "Engineer", Location: "Berlin", URL: "https://acme.de/jobs/1"},
		{Title: "Engineer (m/w/d)", Location: "Berlin, Deutschland", URL: "https://acme.de/jobs/1/"},
	}
	out := Dedup(in, "https://acme.de/jobs")
	assert.Len(t, out, 1)
}

func TestDedupIdempotent(t *testing.T) {
	in := []models.JobCandidate{
		{Title: "A", URL: "https://x.de/1"},
		{Title: "B"},
		{Title: "A", URL: "https://x.de/1"},
	}
	once := Dedup(in, "https://x.de")
	twice := Dedup(once, "https://x.de")
	assert.Equal(t, once, twice)
}

func TestHybridSchemaOrgShortCircuitsLLM(t *testing.T) {
	html := `<html><head>
	<script type="application/ld+json">{"@context":"https://schema.org"}</script>
	<script type="application/ld+json">[
		{"@type":"JobPosting","title":"Job 1"},
		{"@type":"JobPosting","title":"Job 2"},
		{"@type":"JobPosting","title":"Job 3"}
	]</script>
	</head><body></body></html>`

	h := NewHybrid(&fakeLLM{pages: map[string]*interfaces.ExtractResult{}}, nil, 10, common.GetLogger())
	res, err := h.ExtractFromHTML(context.Background(), "https://acme.de/careers", html, noFetch)
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 3)
	assert.Equal(t, 1, res.Pages)
}

func TestHybridPlatformParserBypassesPagination(t *testing.T) {
	html := `<html><body>
		<div class="opening"><a href="/acme/jobs/1">Engineer</a><span class="location">Berlin</span></div>
	</body></html>`

	h := NewHybrid(&fakeLLM{pages: map[string]*interfaces.ExtractResult{}}, nil, 10, common.GetLogger())
	res, err := h.ExtractFromHTML(context.Background(), "https://boards.greenhouse.io/acme", html, noFetch)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "greenhouse", res.Platform)
}

func TestHybridLLMFiltersNonJobs(t *testing.T) {
	llm := &fakeLLM{pages: map[string]*interfaces.ExtractResult{
		"https://acme.de/jobs": {Jobs: []models.JobCandidate{
			{Title: "Job A"}, {Title: "Job B"}, {Title: "Job C"},
			{Title: "Job D"}, {Title: "Initiativbewerbung"},
		}},
	}}
	h := NewHybrid(llm, nil, 10, common.GetLogger())
	res, err := h.ExtractFromHTML(context.Background(), "https://acme.de/jobs", "<html><body>plain</body></html>", noFetch)
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 4)
}

func TestHybridBareURLFallback(t *testing.T) {
	page := "https://acme.de/jobs"
	llm := &fakeLLM{
		pages: map[string]*interfaces.ExtractResult{page: {}},
		jobURLs: []string{
			"/jobs/senior-backend-engineer-m-w-d-8431",
			"/jobs/initiativbewerbung",
			"/jobs/hr-business-partner",
		},
	}
	h := NewHybrid(llm, nil, 10, common.GetLogger())
	res, err := h.ExtractFromHTML(context.Background(), page, "<html><body>board</body></html>", noFetch)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 2, "Initiativbewerbung slug is filtered out")
	assert.Equal(t, "Senior Backend Engineer", res.Jobs[0].Title)
	assert.Equal(t, "https://acme.de/jobs/senior-backend-engineer-m-w-d-8431", res.Jobs[0].URL)
	assert.Equal(t, "HR Business Partner", res.Jobs[1].Title)
	assert.InDelta(t, 0.4, res.Jobs[0].Confidence, 1e-9)
}

func TestHybridBareURLFallbackNotReachedWithJobs(t *testing.T) {
	page := "https://acme.de/jobs"
	llm := &fakeLLM{pages: map[string]*interfaces.ExtractResult{
		page: {Jobs: []models.JobCandidate{{Title: "Engineer"}}},
	}}
	h := NewHybrid(llm, nil, 10, common.GetLogger())
	res, err := h.ExtractFromHTML(context.Background(), page, "<html><body>board</body></html>", noFetch)
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 1)
}

func TestHybridPaginationRingTerminates(t *testing.T) {
	page1 := "https://acme.de/jobs"
	page2 := "https://acme.de/jobs?page=2"

	jobs := make([]models.JobCandidate, 20)
	for i := range jobs {
		jobs[i] = models.JobCandidate{Title: "Job " + string(rune('A'+i))}
	}
	llm := &fakeLLM{pages: map[string]*interfaces.ExtractResult{
		page1: {Jobs: jobs, NextPageURL: page2},
		page2: {Jobs: jobs, NextPageURL: page1}, // ring
	}}
	fetched := 0
	fetch := func(_ context.Context, url string) (string, error) {
		fetched++
		return "<html></html>", nil
	}

	h := NewHybrid(llm, nil, 10, common.GetLogger())
	res, err := h.ExtractFromHTML(context.Background(), page1, "<html></html>", fetch)
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 20)
	assert.Equal(t, 2, res.Pages)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 1, fetched)
}

func TestHybridPaginationCapEmitsWarning(t *testing.T) {
	pages := map[string]*interfaces.ExtractResult{}
	base := "https://deep.example/jobs?page="
	for i := 1; i <= 12; i++ {
		pages[pageN(base, i)] = &interfaces.ExtractResult{
			Jobs:        []models.JobCandidate{{Title: "Job page " + pageN("", i)}},
			NextPageURL: pageN(base, i+1),
		}
	}
	llm := &fakeLLM{pages: pages}
	fetch := func(_ context.Context, url string) (string, error) { return "<html></html>", nil }

	h := NewHybrid(llm, nil, 3, common.GetLogger())
	res, err := h.ExtractFromHTML(context.Background(), pageN(base, 1), "<html></html>", fetch)
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 3)
	assert.Contains(t, res.Warning, pageN(base, 4))
}

func pageN(base string, n int) string {
	return base + string(rune('0'+n/10)) + string(rune('0'+n%10))
}
