package interfaces

import (
	"context"

	"github.com/ternarybob/jobradar/internal/models"
)

// Message represents a single turn in a provider conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionClient is the raw completion capability consumed from an
// LLM provider. Implementations live in services/llm; the core never
// sees HTTP details.
type CompletionClient interface {
	// Complete generates a free-text completion for the conversation.
	Complete(ctx context.Context, messages []Message) (string, error)

	// CompleteStructured generates a completion constrained to the
	// given JSON schema where the provider supports it; otherwise the
	// schema is appended to the prompt and the raw text returned.
	CompleteStructured(ctx context.Context, messages []Message, schema map[string]any) (string, error)

	// Model returns the model identifier used for cache keying.
	Model() string

	// Close releases provider resources.
	Close() error
}

// ExtractResult is one page worth of LLM job extraction.
type ExtractResult struct {
	Jobs        []models.JobCandidate `json:"jobs"`
	NextPageURL string                `json:"next_page_url,omitempty"`
}

// LLMService is the high-level adapter surface consumed by discovery
// and extraction. All scraped content passed in is treated as
// untrusted; implementations must mark it so in prompts.
type LLMService interface {
	// ExtractJobs extracts job candidates (and a pagination hint) from
	// rendered page HTML.
	ExtractJobs(ctx context.Context, pageURL, html string) (*ExtractResult, error)

	// FindCareersPage locates a careers URL from homepage HTML and
	// sitemap URLs. Returns "" when the model answers NOT_FOUND.
	FindCareersPage(ctx context.Context, baseURL, html string, sitemapURLs []string) (string, error)

	// FindJobBoard picks, from a careers landing page's outgoing links,
	// the URL that shows the actual job listing. Returns pageURL when
	// the page already is the listing and "" when none of the links
	// lead to one. Results may be relative to pageURL.
	FindJobBoard(ctx context.Context, pageURL string, links []string) (string, error)

	// FindJobURLs lists the posting-detail URLs visible on a page, for
	// boards whose markup defeats full extraction. Results may be
	// relative to pageURL.
	FindJobURLs(ctx context.Context, pageURL, html string) ([]string, error)

	// TranslateTitles translates job titles to English, same length and
	// order; entries may equal input if already English.
	TranslateTitles(ctx context.Context, titles []string) ([]string, error)

	// ExtractCompanyInfo produces a short company description from
	// homepage HTML.
	ExtractCompanyInfo(ctx context.Context, pageURL, html string) (string, error)
}
