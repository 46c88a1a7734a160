package interfaces

import "context"

// HTTPFetcher is the plain-HTTP page fetch capability.
type HTTPFetcher interface {
	// Get fetches a URL body. Returns ("", nil) on 4xx/5xx responses;
	// DNS and connect failures surface as a DomainUnreachable error.
	Get(ctx context.Context, url string) (string, error)

	// ProbeDomain fails fast on dead domains using HEAD (falling back
	// to GET) with a short timeout.
	ProbeDomain(ctx context.Context, url string) error

	// DetectRedirect follows redirects and reports the final URL plus
	// whether the redirect crossed a registered-domain boundary.
	DetectRedirect(ctx context.Context, url string) (finalURL string, crossedDomain bool, err error)
}

// BrowserPage is the rendered result of a browser navigation. The
// caller owns Close and must call it on every exit path.
type BrowserPage struct {
	HTML     string
	FinalURL string
	Close    func()
}

// BrowserFetcher is the headless-browser fetch capability.
type BrowserFetcher interface {
	// FetchSimple loads a page, optionally awaits a selector, settles,
	// and returns rendered HTML.
	FetchSimple(ctx context.Context, url, waitFor string) (string, error)

	// FetchWithNavigation loads a page, dismisses cookie consent,
	// clicks through to an embedded jobs listing and follows external
	// ATS boards.
	FetchWithNavigation(ctx context.Context, url string) (*BrowserPage, error)
}
