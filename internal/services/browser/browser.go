// Package browser wraps a headless Chrome instance for pages that need
// JavaScript rendering: SPAs, cookie-walled sites and embedded ATS
// widgets. One browser process is shared; every fetch gets a fresh tab
// context so sites never see each other's cookies.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobradar/internal/common"
	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/services/fetch"
)

// Fetcher implements interfaces.BrowserFetcher on chromedp. The
// underlying browser starts lazily on first use.
type Fetcher struct {
	config common.BrowserConfig
	logger arbor.ILogger

	mu            sync.Mutex
	started       bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// New creates a browser fetcher; the browser process itself is not
// launched until the first fetch.
func New(config common.BrowserConfig, logger arbor.ILogger) *Fetcher {
	return &Fetcher{config: config, logger: logger}
}

// start launches the shared browser process. Must be called with the
// mutex held through ensureStarted.
func (f *Fetcher) start() error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", f.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(1920, 1080),
	)
	if f.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	if f.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// startup probe so a missing chrome binary fails here, not mid-scan
	probeCtx, probeCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer probeCancel()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser startup failed: %w", err)
	}

	f.allocCancel = allocCancel
	f.browserCtx = browserCtx
	f.browserCancel = browserCancel
	f.started = true
	f.logger.Info().Bool("headless", f.config.Headless).Msg("Headless browser started")
	return nil
}

func (f *Fetcher) ensureStarted() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	return f.start()
}

// newPage opens a fresh tab context bounded by the page-load timeout.
// The returned cancel closes the tab.
func (f *Fetcher) newPage(ctx context.Context) (context.Context, context.CancelFunc) {
	pageCtx, pageCancel := chromedp.NewContext(f.browserCtx)
	timeoutCtx, timeoutCancel := context.WithTimeout(pageCtx, f.config.PageLoadTimeout)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			timeoutCancel()
		case <-stop:
		}
	}()

	cancel := func() {
		close(stop)
		timeoutCancel()
		pageCancel()
	}
	return timeoutCtx, cancel
}

// FetchSimple loads a page, optionally awaits a selector, settles, and
// returns rendered HTML. Non-network browser failures return ("", nil);
// unreachable domains surface as a DomainUnreachable error.
func (f *Fetcher) FetchSimple(ctx context.Context, url, waitFor string) (string, error) {
	if err := f.ensureStarted(); err != nil {
		return "", err
	}
	pageCtx, cancel := f.newPage(ctx)
	defer cancel()

	if err := chromedp.Run(pageCtx, chromedp.Navigate(url)); err != nil {
		return "", f.mapError(url, err)
	}
	if waitFor != "" {
		waitCtx, waitCancel := context.WithTimeout(pageCtx, f.config.SelectorTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(waitFor, chromedp.ByQuery))
		waitCancel()
		if err != nil {
			f.logger.Debug().Str("url", url).Str("selector", waitFor).Msg("Selector wait timed out, continuing")
		}
	}
	if err := chromedp.Run(pageCtx, chromedp.Sleep(f.config.SettleDelay)); err != nil {
		return "", f.mapError(url, err)
	}
	f.scrollForContent(pageCtx, url)

	var html string
	if err := chromedp.Run(pageCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", f.mapError(url, err)
	}
	return html, nil
}

// FetchWithNavigation loads a page, dismisses cookie consent, clicks
// through to an embedded jobs listing and follows external boards. The
// caller owns closing the returned page.
func (f *Fetcher) FetchWithNavigation(ctx context.Context, url string) (*interfaces.BrowserPage, error) {
	if err := f.ensureStarted(); err != nil {
		return nil, err
	}
	pageCtx, cancel := f.newPage(ctx)

	fail := func(err error) (*interfaces.BrowserPage, error) {
		cancel()
		return nil, f.mapError(url, err)
	}

	if err := chromedp.Run(pageCtx, chromedp.Navigate(url)); err != nil {
		return fail(err)
	}
	if err := chromedp.Run(pageCtx, chromedp.Sleep(f.config.SettleDelay)); err != nil {
		return fail(err)
	}

	f.dismissConsent(pageCtx, url)

	finalCtx, finalCancel := f.clickThroughToJobs(pageCtx, cancel, url)

	f.scrollForContent(finalCtx, url)

	var html, finalURL string
	if err := chromedp.Run(finalCtx,
		chromedp.OuterHTML("html", &html),
		chromedp.Location(&finalURL),
	); err != nil {
		finalCancel()
		return nil, f.mapError(url, err)
	}

	if frameHTML, frameURL, ok := f.frameFallback(finalCtx, html); ok {
		html, finalURL = frameHTML, frameURL
	}

	return &interfaces.BrowserPage{
		HTML:     html,
		FinalURL: finalURL,
		Close:    finalCancel,
	}, nil
}

// mapError classifies a browser failure: network-unreachable tokens
// become DomainUnreachable, everything else is swallowed as a no-result
// (logged, nil error).
func (f *Fetcher) mapError(url string, err error) error {
	if err == nil {
		return nil
	}
	if fetch.MessageIsUnreachable(err.Error()) {
		return fmt.Errorf("%s: %w", url, fetch.ErrDomainUnreachable)
	}
	if strings.Contains(err.Error(), "context deadline exceeded") {
		f.logger.Warn().Str("url", url).Msg("Browser navigation timed out")
		return nil
	}
	f.logger.Warn().Err(err).Str("url", url).Msg("Browser fetch failed")
	return nil
}

// Close shuts the shared browser down.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return nil
	}
	f.browserCancel()
	f.allocCancel()
	f.started = false
	f.logger.Info().Msg("Headless browser stopped")
	return nil
}
