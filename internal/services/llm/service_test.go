package llm

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/llmcache"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i >= len(c.responses) {
		return "", fmt.Errorf("unexpected call %d", i)
	}
	return c.responses[i], nil
}

func (c *scriptedClient) Complete(ctx context.Context, _ []interfaces.Message) (string, error) {
	return c.next()
}

func (c *scriptedClient) CompleteStructured(ctx context.Context, _ []interfaces.Message, _ map[string]any) (string, error) {
	return c.next()
}

func (c *scriptedClient) Model() string { return "test-model" }
func (c *scriptedClient) Close() error  { return nil }

const jobsPage = `<html><body><div id="jobs">
<h2>Open roles at Acme</h2>
<a href="/jobs/1">Backend Engineer in Berlin full time permanent position</a>
<a href="/jobs/2">Support Agent in Hamburg part time position opening</a>
<p>` + filler + `</p>
</div></body></html>`

const filler = "We hire across engineering and operations for multiple job openings and career paths in our offices."

func TestExtractJobsRetriesEmptyResult(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"jobs":[]}`,
		`{"jobs":[{"title":"Backend Engineer","url":"/jobs/1"}]}`,
	}}
	s := NewService(client, nil, common.GetLogger())

	res, err := s.ExtractJobs(context.Background(), "https://acme.example/jobs", jobsPage)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Backend Engineer", res.Jobs[0].Title)
	assert.Equal(t, 2, client.calls)
}

func TestExtractJobsEmptyAfterAllRetries(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"jobs":[]}`, `{"jobs":[]}`, `{"jobs":[]}`}}
	s := NewService(client, nil, common.GetLogger())

	res, err := s.ExtractJobs(context.Background(), "https://acme.example/jobs", jobsPage)
	require.NoError(t, err)
	assert.Empty(t, res.Jobs)
	assert.Equal(t, 3, client.calls)
}

func TestExtractJobsEmptyHTML(t *testing.T) {
	client := &scriptedClient{}
	s := NewService(client, nil, common.GetLogger())

	res, err := s.ExtractJobs(context.Background(), "https://acme.example/jobs", "")
	require.NoError(t, err)
	assert.Empty(t, res.Jobs)
	assert.Zero(t, client.calls)
}

func TestExtractJobsCacheShortCircuit(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"jobs":[{"title":"Backend Engineer","url":"/jobs/1"}]}`,
	}}
	cache := llmcache.New(newMemStorage(), client.Model(), common.GetLogger())
	s := NewService(client, cache, common.GetLogger())

	ctx := context.Background()
	first, err := s.ExtractJobs(ctx, "https://acme.example/jobs", jobsPage)
	require.NoError(t, err)
	second, err := s.ExtractJobs(ctx, "https://acme.example/jobs", jobsPage)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, first.Jobs, second.Jobs)
}

func TestFindCareersPage(t *testing.T) {
	client := &scriptedClient{responses: []string{"https://acme.example/careers"}}
	s := NewService(client, nil, common.GetLogger())

	url, err := s.FindCareersPage(context.Background(), "https://acme.example", jobsPage, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/careers", url)
}

func TestFindCareersPageNotFound(t *testing.T) {
	client := &scriptedClient{responses: []string{"NOT_FOUND"}}
	s := NewService(client, nil, common.GetLogger())

	url, err := s.FindCareersPage(context.Background(), "https://acme.example", jobsPage, nil)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFindJobBoard(t *testing.T) {
	client := &scriptedClient{responses: []string{"https://acme.jobs.personio.de"}}
	s := NewService(client, nil, common.GetLogger())

	url, err := s.FindJobBoard(context.Background(), "https://acme.example/karriere",
		[]string{"https://acme.example/about", "https://acme.jobs.personio.de"})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.jobs.personio.de", url)
}

func TestFindJobBoardCurrentPage(t *testing.T) {
	client := &scriptedClient{responses: []string{"CURRENT_PAGE"}}
	s := NewService(client, nil, common.GetLogger())

	url, err := s.FindJobBoard(context.Background(), "https://acme.example/karriere",
		[]string{"https://acme.example/about"})
	require.NoError(t, err)
	assert.Equal(t, "https://acme.example/karriere", url)
}

func TestFindJobBoardNoLinks(t *testing.T) {
	client := &scriptedClient{}
	s := NewService(client, nil, common.GetLogger())

	url, err := s.FindJobBoard(context.Background(), "https://acme.example/karriere", nil)
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Zero(t, client.calls)
}

func TestFindJobURLs(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"urls":["/jobs/backend-engineer","/jobs/cook"]}`,
	}}
	s := NewService(client, nil, common.GetLogger())

	urls, err := s.FindJobURLs(context.Background(), "https://acme.example/jobs", jobsPage)
	require.NoError(t, err)
	assert.Equal(t, []string{"/jobs/backend-engineer", "/jobs/cook"}, urls)
}

func TestFindJobURLsEmptyAnswer(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"urls":[]}`}}
	s := NewService(client, nil, common.GetLogger())

	urls, err := s.FindJobURLs(context.Background(), "https://acme.example/jobs", jobsPage)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestTranslateTitles(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"translations":["software developer (m/f/d)","accountant"]}`,
	}}
	s := NewService(client, nil, common.GetLogger())

	out, err := s.TranslateTitles(context.Background(), []string{"Softwareentwickler (m/w/d)", "Buchhalter"})
	require.NoError(t, err)
	assert.Equal(t, []string{"software developer (m/f/d)", "accountant"}, out)
}

func TestTranslateTitlesGarbageFallsBackToDictionary(t *testing.T) {
	// ellipsis placeholder fails validation, dictionary takes over
	client := &scriptedClient{responses: []string{
		`{"translations":["software developer","…"]}`,
	}}
	s := NewService(client, nil, common.GetLogger())

	out, err := s.TranslateTitles(context.Background(), []string{"Softwareentwickler", "Buchhalter"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "software developer", out[0])
	assert.Equal(t, "accountant", out[1])
}

func TestTranslateTitlesCountMismatchFallsBack(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"translations":["only one"]}`,
	}}
	s := NewService(client, nil, common.GetLogger())

	out, err := s.TranslateTitles(context.Background(), []string{"Koch", "Fahrer"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cook", "driver"}, out)
}

func TestTranslateTitlesEmptyInput(t *testing.T) {
	s := NewService(&scriptedClient{}, nil, common.GetLogger())
	out, err := s.TranslateTitles(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExtractCompanyInfo(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"Acme builds warehouse automation for mid-sized logistics companies.",
	}}
	s := NewService(client, nil, common.GetLogger())

	desc, err := s.ExtractCompanyInfo(context.Background(), "https://acme.example", jobsPage)
	require.NoError(t, err)
	assert.Contains(t, desc, "warehouse automation")
}

// memStorage is an in-memory CacheStorage for adapter tests.
type memStorage struct {
	mu      sync.Mutex
	entries map[string]*models.LLMCacheEntry
}

func newMemStorage() *memStorage {
	return &memStorage{entries: make(map[string]*models.LLMCacheEntry)}
}

func (m *memStorage) CacheGet(_ context.Context, key string) (*models.LLMCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (m *memStorage) CachePut(_ context.Context, entry *models.LLMCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.Key] = &cp
	return nil
}

func (m *memStorage) CacheRecordHit(_ context.Context, key string, _ int) error {
	return nil
}

func (m *memStorage) CleanExpiredCache(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if e.Expired(time.Now()) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}
