// Package llm adapts raw completion providers into the high-level
// extraction, discovery and translation capabilities the pipeline
// consumes. All scraped content is treated as untrusted input.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/llm/offline"
	"github.com/ternarybob/jobradar/internal/services/llmcache"
)

// empty-jobs retries rely on sampler nondeterminism; the prompt is
// identical across attempts.
const emptyJobsRetries = 3

// Service implements interfaces.LLMService over a completion client
// with response caching and validation.
type Service struct {
	client interfaces.CompletionClient
	cache  *llmcache.Cache
	logger arbor.ILogger
}

// NewService wraps a completion client. cache may be nil (tests).
func NewService(client interfaces.CompletionClient, cache *llmcache.Cache, logger arbor.ILogger) *Service {
	return &Service{client: client, cache: cache, logger: logger}
}

// ExtractJobs runs the EXTRACT_JOBS prompt over rendered page HTML.
// Empty results are retried; the final empty answer is a legitimate
// result, not an error.
func (s *Service) ExtractJobs(ctx context.Context, pageURL, html string) (*interfaces.ExtractResult, error) {
	markdown := PrepareHTML(html, pageURL)
	if strings.TrimSpace(markdown) == "" {
		return &interfaces.ExtractResult{}, nil
	}
	prompt := extractJobsPrompt(pageURL, markdown)

	payload, err := s.cached(ctx, models.CacheNamespaceJobs, pageURL+"\x00"+contentHash(markdown), len(markdown)/4, func(ctx context.Context) (string, error) {
		return s.extractJobsUncached(ctx, prompt, pageURL)
	})
	if err != nil {
		return nil, err
	}
	if payload == "" {
		// legitimate empty answer after retries; never cached
		return &interfaces.ExtractResult{}, nil
	}
	res, err := ParseJobsResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("unparseable cached jobs payload: %w", err)
	}
	return res, nil
}

func (s *Service) extractJobsUncached(ctx context.Context, prompt, pageURL string) (string, error) {
	var last *interfaces.ExtractResult
	for attempt := 1; attempt <= emptyJobsRetries; attempt++ {
		text, err := withProviderRetry(ctx, s.logger, func(ctx context.Context) (string, error) {
			return s.client.CompleteStructured(ctx, s.messages(prompt), extractJobsSchema)
		})
		if err != nil {
			return "", err
		}
		res, err := ParseJobsResponse(text)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", pageURL).Int("attempt", attempt).Msg("Unparseable extraction response")
			continue
		}
		if len(res.Jobs) > 0 {
			return marshalResult(res), nil
		}
		last = res
		s.logger.Debug().Str("url", pageURL).Int("attempt", attempt).Msg("Empty jobs result, retrying")
	}
	if last == nil {
		last = &interfaces.ExtractResult{}
	}
	// legitimate empty result; returned but not cached (empty payloads
	// are rejected by the cache's Set)
	return marshalResult(last), nil
}

// FindCareersPage runs the FIND_CAREERS_PAGE prompt. Returns "" when
// the model answers NOT_FOUND.
func (s *Service) FindCareersPage(ctx context.Context, baseURL, html string, sitemapURLs []string) (string, error) {
	cleaned := truncate(PrepareHTML(html, baseURL), MaxDiscoveryChars)
	if len(sitemapURLs) > 100 {
		sitemapURLs = sitemapURLs[:100]
	}
	prompt := findCareersPagePrompt(baseURL, cleaned, sitemapURLs)

	answer, err := s.cached(ctx, models.CacheNamespaceURL, baseURL, len(cleaned)/4, func(ctx context.Context) (string, error) {
		text, err := withProviderRetry(ctx, s.logger, func(ctx context.Context) (string, error) {
			return s.client.Complete(ctx, s.messages(prompt))
		})
		if err != nil {
			return "", err
		}
		return ParseURLResponse(text), nil
	})
	if err != nil {
		return "", err
	}
	if answer == "" || strings.EqualFold(answer, "CURRENT_PAGE") {
		return "", nil
	}
	return answer, nil
}

// FindJobBoard runs the FIND_JOB_BOARD prompt over the outgoing links
// of a careers landing page. Returns pageURL itself when the model
// answers CURRENT_PAGE and "" for NOT_FOUND. A returned URL may be
// relative; callers resolve against pageURL.
func (s *Service) FindJobBoard(ctx context.Context, pageURL string, links []string) (string, error) {
	if len(links) == 0 {
		return "", nil
	}
	if len(links) > 100 {
		links = links[:100]
	}
	content := strings.Join(links, "\n")

	answer, err := s.cached(ctx, models.CacheNamespaceURL, "board\x00"+pageURL+"\x00"+contentHash(content), len(content)/4, func(ctx context.Context) (string, error) {
		text, err := withProviderRetry(ctx, s.logger, func(ctx context.Context) (string, error) {
			return s.client.Complete(ctx, s.messages(findJobBoardPrompt(pageURL, links)))
		})
		if err != nil {
			return "", err
		}
		return ParseURLResponse(text), nil
	})
	if err != nil {
		return "", err
	}
	if strings.EqualFold(answer, "CURRENT_PAGE") {
		return pageURL, nil
	}
	return answer, nil
}

// FindJobURLs runs the FIND_JOB_URLS prompt, asking only for the URLs
// of the individual postings on a page. This is the fallback for boards
// whose markup defeats full extraction. URLs may be relative.
func (s *Service) FindJobURLs(ctx context.Context, pageURL, html string) ([]string, error) {
	markdown := truncate(PrepareHTML(html, pageURL), MaxDiscoveryChars)
	if strings.TrimSpace(markdown) == "" {
		return nil, nil
	}
	prompt := findJobURLsPrompt(pageURL, markdown)

	payload, err := s.cached(ctx, models.CacheNamespaceURL, "job-urls\x00"+pageURL+"\x00"+contentHash(markdown), len(markdown)/4, func(ctx context.Context) (string, error) {
		text, err := withProviderRetry(ctx, s.logger, func(ctx context.Context) (string, error) {
			return s.client.CompleteStructured(ctx, s.messages(prompt), urlListSchema)
		})
		if err != nil {
			return "", err
		}
		urls := ParseURLListResponse(text)
		if len(urls) == 0 {
			return "", nil // empty: never cached
		}
		b, err := json.Marshal(urls)
		if err != nil {
			return "", nil
		}
		return string(b), nil
	})
	if err != nil || payload == "" {
		return nil, err
	}

	var urls []string
	if err := json.Unmarshal([]byte(payload), &urls); err != nil {
		return nil, fmt.Errorf("unparseable cached url payload: %w", err)
	}
	return urls, nil
}

// TranslateTitles translates job titles to English, falling back to the
// offline dictionary when the model response fails validation.
func (s *Service) TranslateTitles(ctx context.Context, titles []string) ([]string, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	content := strings.Join(titles, "\n")
	payload, err := s.cached(ctx, models.CacheNamespaceTranslation, content, len(content)/4, func(ctx context.Context) (string, error) {
		return s.translateUncached(ctx, titles)
	})
	if err != nil || payload == "" {
		return offline.TranslateTitles(titles), nil
	}

	var out struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return offline.TranslateTitles(titles), nil
	}
	if err := offline.ValidTranslation(titles, out.Translations); err != nil {
		s.logger.Warn().Err(err).Msg("Cached translation invalid, using dictionary fallback")
		return offline.TranslateTitles(titles), nil
	}
	return out.Translations, nil
}

func (s *Service) translateUncached(ctx context.Context, titles []string) (string, error) {
	text, err := withProviderRetry(ctx, s.logger, func(ctx context.Context) (string, error) {
		return s.client.CompleteStructured(ctx, s.messages(translateTitlesPrompt(titles)), translateSchema)
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("Translation call failed, using dictionary fallback")
		return "", nil // empty: not cached, caller falls back
	}

	payload := extractJSON(text)
	var out struct {
		Translations []string `json:"translations"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return "", nil
	}
	if err := offline.ValidTranslation(titles, out.Translations); err != nil {
		s.logger.Warn().Err(err).Msg("Translation rejected by validation, using dictionary fallback")
		return "", nil
	}
	return payload, nil
}

// ExtractCompanyInfo produces a short company description from homepage
// HTML, cached per domain content.
func (s *Service) ExtractCompanyInfo(ctx context.Context, pageURL, html string) (string, error) {
	markdown := truncate(PrepareHTML(html, pageURL), MaxDiscoveryChars)
	if strings.TrimSpace(markdown) == "" {
		return "", nil
	}
	return s.cached(ctx, models.CacheNamespaceCompany, pageURL, len(markdown)/4, func(ctx context.Context) (string, error) {
		text, err := withProviderRetry(ctx, s.logger, func(ctx context.Context) (string, error) {
			return s.client.Complete(ctx, s.messages(extractCompanyInfoPrompt(pageURL, markdown)))
		})
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	})
}

// cached routes a compute through the cache when one is configured.
func (s *Service) cached(ctx context.Context, ns models.CacheNamespace, content string, tokens int, compute func(context.Context) (string, error)) (string, error) {
	if s.cache == nil {
		return compute(ctx)
	}
	return s.cache.GetOrCompute(ctx, ns, content, tokens, compute)
}

func (s *Service) messages(prompt string) []interfaces.Message {
	return []interfaces.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
}

func marshalResult(res *interfaces.ExtractResult) string {
	if len(res.Jobs) == 0 {
		return "" // empty payloads are never cached
	}
	b, err := json.Marshal(res)
	if err != nil {
		return ""
	}
	return string(b)
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}
