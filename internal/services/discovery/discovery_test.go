package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
)

// fakeHTTP serves canned bodies and probe results.
type fakeHTTP struct {
	bodies  map[string]string
	probeOK map[string]bool
	gets    []string
}

func (f *fakeHTTP) Get(_ context.Context, url string) (string, error) {
	f.gets = append(f.gets, url)
	return f.bodies[url], nil
}

func (f *fakeHTTP) ProbeDomain(_ context.Context, url string) error {
	if f.probeOK[url] {
		return nil
	}
	return assert.AnError
}

func (f *fakeHTTP) DetectRedirect(_ context.Context, url string) (string, bool, error) {
	return url, false, nil
}

type fakeLLM struct {
	careersURL string
	called     bool
	boardURL   string
	boardLinks []string
}

func (f *fakeLLM) ExtractJobs(context.Context, string, string) (*interfaces.ExtractResult, error) {
	panic("unexpected ExtractJobs call")
}

func (f *fakeLLM) FindCareersPage(context.Context, string, string, []string) (string, error) {
	f.called = true
	return f.careersURL, nil
}

func (f *fakeLLM) FindJobBoard(_ context.Context, pageURL string, links []string) (string, error) {
	f.boardLinks = links
	if f.boardURL == "CURRENT_PAGE" {
		return pageURL, nil
	}
	return f.boardURL, nil
}

func (f *fakeLLM) FindJobURLs(context.Context, string, string) ([]string, error) {
	panic("unexpected FindJobURLs call")
}

func (f *fakeLLM) TranslateTitles(_ context.Context, titles []string) ([]string, error) {
	return titles, nil
}

func (f *fakeLLM) ExtractCompanyInfo(context.Context, string, string) (string, error) {
	return "", nil
}

func TestDiscoverSubdomainProbe(t *testing.T) {
	http := &fakeHTTP{
		bodies:  map[string]string{},
		probeOK: map[string]bool{"https://jobs.acme.example": true},
	}
	d := New(http, nil, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://www.acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://jobs.acme.example", found)
	assert.Empty(t, http.gets, "probe hit must short-circuit all fetching")
}

func TestDiscoverSitemap(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example/robots.txt": "User-agent: *\nSitemap: https://acme.example/sitemap.xml\n",
			"https://acme.example/sitemap.xml": `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>https://acme.example/about</loc></url>
<url><loc>https://acme.example/career</loc></url>
<url><loc>https://acme.example/career/jobs</loc></url>
</urlset>`,
		},
		probeOK: map[string]bool{},
	}
	d := New(http, nil, common.GetLogger())

	found, err := d.Discover(context.Background(), "acme.example")
	require.NoError(t, err)
	// the listing suffix outranks the shorter landing page
	assert.Equal(t, "https://acme.example/career/jobs", found)
}

func TestDiscoverSitemapIndexRecursion(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example/sitemap.xml": `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<sitemap><loc>https://acme.example/sitemap-pages.xml</loc></sitemap>
<sitemap><loc>https://acme.example/sitemap-karriere.xml</loc></sitemap>
</sitemapindex>`,
			"https://acme.example/sitemap-karriere.xml": `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>https://acme.example/karriere/stellenangebote</loc></url>
</urlset>`,
			"https://acme.example/sitemap-pages.xml": `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>https://acme.example/imprint</loc></url>
</urlset>`,
		},
		probeOK: map[string]bool{},
	}
	d := New(http, nil, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/karriere/stellenangebote", found)
	// career-looking nested sitemap is visited before the generic one
	assert.Less(t,
		indexOf(http.gets, "https://acme.example/sitemap-karriere.xml"),
		indexOf(http.gets, "https://acme.example/sitemap-pages.xml"))
}

func TestDiscoverHomepageHeuristic(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example": `<html><body>
<a href="/imprint">Imprint</a>
<a href="/unternehmen/karriere">Karriere</a>
</body></html>`,
		},
		probeOK: map[string]bool{},
	}
	d := New(http, nil, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/unternehmen/karriere", found)
}

func TestDiscoverBoardHop(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example": `<html><body>
<a href="/unternehmen/karriere">Karriere</a>
</body></html>`,
			"https://acme.example/unternehmen/karriere": `<html><body>
<a href="/unternehmen">Über uns</a>
<a href="https://acme.jobs.personio.de">Zu den offenen Stellen</a>
</body></html>`,
		},
		probeOK: map[string]bool{},
	}
	llm := &fakeLLM{boardURL: "https://acme.jobs.personio.de"}
	d := New(http, llm, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.jobs.personio.de", found)
	assert.Contains(t, llm.boardLinks, "https://acme.example/unternehmen")
	assert.Contains(t, llm.boardLinks, "https://acme.jobs.personio.de")
}

func TestDiscoverBoardHopCurrentPageKeepsLanding(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example": `<html><body>
<a href="/unternehmen/karriere">Karriere</a>
</body></html>`,
			"https://acme.example/unternehmen/karriere": `<html><body>
<a href="/unternehmen">Über uns</a>
<h2>Offene Stellen</h2>
</body></html>`,
		},
		probeOK: map[string]bool{},
	}
	llm := &fakeLLM{boardURL: "CURRENT_PAGE"}
	d := New(http, llm, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/unternehmen/karriere", found)
}

func TestDiscoverBoardHopSkippedForListingURL(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example": `<html><body>
<a href="/jobs">Jobs</a>
</body></html>`,
		},
		probeOK: map[string]bool{},
	}
	llm := &fakeLLM{boardURL: "https://elsewhere.example"}
	d := New(http, llm, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/jobs", found)
	assert.Nil(t, llm.boardLinks, "listing-shaped URL must not trigger the board hop")
	assert.NotContains(t, http.gets, "https://acme.example/jobs")
}

func TestDiscoverBruteForce(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example":          `<html><body><a href="/imprint">Imprint</a></body></html>`,
			"https://acme.example/karriere": "<html><body>Offene Stellen</body></html>",
		},
		probeOK: map[string]bool{},
	}
	d := New(http, nil, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/karriere", found)
}

func TestDiscoverLLMFallback(t *testing.T) {
	http := &fakeHTTP{
		bodies: map[string]string{
			"https://acme.example": `<html><body><a href="/imprint">Imprint</a></body></html>`,
		},
		probeOK: map[string]bool{},
	}
	llm := &fakeLLM{careersURL: "/team/openings"}
	d := New(http, llm, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.True(t, llm.called)
	assert.Equal(t, "https://acme.example/team/openings", found)
}

func TestDiscoverNothingFound(t *testing.T) {
	http := &fakeHTTP{
		bodies:  map[string]string{"https://acme.example": "<html><body>Welcome</body></html>"},
		probeOK: map[string]bool{},
	}
	d := New(http, nil, common.GetLogger())

	found, err := d.Discover(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGenerateURLVariants(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"https://acme.example/job.html", []string{"https://acme.example/jobs.html"}},
		{"https://acme.example/jobs.html", []string{"https://acme.example/job.html"}},
		{"https://acme.example/stellen", []string{"https://acme.example/stelle"}},
		{"https://acme.example/stellenangebote", nil},
		{"https://acme.example/about", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateURLVariants(tt.in), tt.in)
	}
}

func indexOf(xs []string, want string) int {
	for i, x := range xs {
		if x == want {
			return i
		}
	}
	return -1
}
