package browser

import (
	"context"
	"regexp"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/jobradar/internal/services/platform"
)

const (
	// clickThroughAttempts bounds the jobs-link recursion: homepage →
	// careers page → embedded listing is the deepest real-world chain.
	clickThroughAttempts = 2

	clickSettle   = 2500 * time.Millisecond
	newTabTimeout = 5 * time.Second

	// minDOMGrowth is the relative size increase required to accept an
	// in-place navigation as "we reached the listing".
	minDOMGrowth = 1.2
)

// findJobsLinkJS locates the most likely jobs-listing link, marks it
// for the follow-up click and returns its href and target. Per-job
// detail links and apply anchors are excluded.
const findJobsLinkJS = `(() => {
	const hrefPat = /(\/jobs?\b|\/careers?\b|\/karriere\b|\/stellenangebote\b|\/stellen\b|\/vacancies\b|karriere\.|jobs\.)/i;
	const textPat = /(current openings|open positions|view (all )?jobs|join (us|our team)|all jobs|offene stellen|alle stellen(angebote)?|stellenangebote|zu den jobs|karriere|все вакансии|вакансии)/i;
	const exclude = /(stellenprofil|\/job\/[^/]+$|\/jobs\/detail\/|#apply|javascript:|mailto:|\.pdf$)/i;
	document.querySelectorAll('[data-nav-candidate]').forEach(el => el.removeAttribute('data-nav-candidate'));
	for (const a of document.querySelectorAll('a[href]')) {
		const href = a.getAttribute('href') || '';
		const text = (a.innerText || '').trim();
		if (exclude.test(href)) continue;
		if (hrefPat.test(href) || textPat.test(text)) {
			const r = a.getBoundingClientRect();
			if (r.width === 0 && r.height === 0) continue;
			a.setAttribute('data-nav-candidate', '1');
			return {href: a.href, target: a.getAttribute('target') || ''};
		}
	}
	return null;
})()`

const clickMarkedJS = `(() => {
	const el = document.querySelector('[data-nav-candidate]');
	if (!el) return false;
	el.click();
	return true;
})()`

const domSizeJS = `document.documentElement.outerHTML.length`

type navCandidate struct {
	Href   string `json:"href"`
	Target string `json:"target"`
}

// clickThroughToJobs tries to follow an embedded jobs link, possibly
// across a new tab. It returns the context holding the final page and
// the cancel that closes everything opened along the way.
func (f *Fetcher) clickThroughToJobs(pageCtx context.Context, pageCancel context.CancelFunc, url string) (context.Context, context.CancelFunc) {
	ctx, cancel := pageCtx, pageCancel

	for attempt := 0; attempt < clickThroughAttempts; attempt++ {
		var cand *navCandidate
		if err := chromedp.Run(ctx, chromedp.Evaluate(findJobsLinkJS, &cand)); err != nil || cand == nil {
			return ctx, cancel
		}

		f.logger.Debug().Str("url", url).Str("href", cand.Href).Str("target", cand.Target).Msg("Following jobs link")

		if cand.Target == "_blank" {
			newCtx, newCancel, ok := f.followNewTab(ctx, cancel)
			if !ok {
				return ctx, cancel
			}
			ctx, cancel = newCtx, newCancel
			continue
		}

		var before int
		_ = chromedp.Run(ctx, chromedp.Evaluate(domSizeJS, &before))

		var clicked bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(clickMarkedJS, &clicked)); err != nil || !clicked {
			return ctx, cancel
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(clickSettle)); err != nil {
			return ctx, cancel
		}

		var after int
		var location string
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(domSizeJS, &after),
			chromedp.Location(&location),
		); err != nil {
			return ctx, cancel
		}

		grown := before > 0 && float64(after) >= float64(before)*minDOMGrowth
		onBoard := platform.Detect(location, "") != ""
		if !grown && !onBoard {
			// navigation did not reach a listing; restore and stop
			_ = chromedp.Run(ctx, chromedp.NavigateBack())
			return ctx, cancel
		}
	}
	return ctx, cancel
}

// followNewTab clicks the marked link and attaches to the tab it opens.
// The returned cancel also closes the opener page.
func (f *Fetcher) followNewTab(ctx context.Context, cancelPrev context.CancelFunc) (context.Context, context.CancelFunc, bool) {
	targetCh := chromedp.WaitNewTarget(ctx, func(info *target.Info) bool {
		return info.Type == "page" && info.URL != "about:blank"
	})

	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(clickMarkedJS, &clicked)); err != nil || !clicked {
		return nil, nil, false
	}

	select {
	case id := <-targetCh:
		tabCtx, tabCancel := chromedp.NewContext(ctx, chromedp.WithTargetID(id))
		timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, f.config.PageLoadTimeout)
		cancel := func() {
			timeoutCancel()
			tabCancel()
			cancelPrev()
		}
		if err := chromedp.Run(timeoutCtx, chromedp.Sleep(f.config.SettleDelay)); err != nil {
			cancel()
			return nil, nil, false
		}
		return timeoutCtx, cancel, true
	case <-time.After(newTabTimeout):
		f.logger.Debug().Msg("New tab never opened after click")
		return nil, nil, false
	}
}

// listingSelectorsJS counts elements that look like job entries across
// the platforms we parse. Used for SPA scroll termination.
const listingSelectorsJS = `document.querySelectorAll('article, .posting, .job-post, .opening, b-virtual-scroll-list-item, a[href*="/job/"], a[href*="/jobs/detail/"]').length`

// scrollForContent scrolls the page in steps until the listing count is
// stable across two polls or the scroll budget is exhausted, then
// returns to the top.
func (f *Fetcher) scrollForContent(ctx context.Context, url string) {
	var prev, stable int
	for i := 0; i < f.config.MaxScrolls; i++ {
		var count int
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(listingSelectorsJS, &count),
			chromedp.Evaluate(`window.scrollBy(0, window.innerHeight * 2)`, nil),
			chromedp.Sleep(400*time.Millisecond),
		); err != nil {
			return
		}
		if count == prev {
			stable++
			if stable >= 2 {
				break
			}
		} else {
			stable = 0
		}
		prev = count
	}
	_ = chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))
}

const frameSourcesJS = `Array.from(document.querySelectorAll('iframe')).map(f => f.src).filter(s => s)`

// listingMarkerRe decides whether rendered HTML already contains a jobs
// listing, gating the iframe fallback.
var listingMarkerRe = regexp.MustCompile(`(?i)class="[^"]*(job-post|posting|opening|job-offer|oe_website_jobs)|href="[^"]*/job/|b-virtual-scroll-list-item|"@type"\s*:\s*"JobPosting"`)

// frameFallback returns an embedded ATS frame's rendered HTML when the
// top document has no listing of its own.
func (f *Fetcher) frameFallback(ctx context.Context, topHTML string) (html, finalURL string, ok bool) {
	if listingMarkerRe.MatchString(topHTML) {
		return "", "", false
	}

	var sources []string
	if err := chromedp.Run(ctx, chromedp.Evaluate(frameSourcesJS, &sources)); err != nil {
		return "", "", false
	}
	for _, src := range sources {
		if platform.Detect(src, "") == "" {
			continue
		}
		f.logger.Debug().Str("frame", src).Msg("Following external board iframe")
		if err := chromedp.Run(ctx,
			chromedp.Navigate(src),
			chromedp.Sleep(f.config.SettleDelay),
		); err != nil {
			return "", "", false
		}
		f.scrollForContent(ctx, src)
		var frameHTML string
		if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &frameHTML)); err != nil {
			return "", "", false
		}
		return frameHTML, src, true
	}
	return "", "", false
}
