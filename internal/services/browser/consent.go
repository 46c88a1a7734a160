package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

// Consent handling is accept-all or nothing: partial consent and reject
// buttons often hide the listing behind another dialog.

// acceptAllJS clicks the first visible accept-all button inside a known
// CMP container, falling back to generic dialog selectors. Returns true
// when something was clicked.
const acceptAllJS = `(() => {
	const accept = /^(accept( all)?( cookies)?|allow all|agree|i agree|ok(ay)?|got it|alle(s)? akzeptieren|akzeptieren|alle cookies akzeptieren|einverstanden|zustimmen|verstanden|принять( все)?|согласен|принимаю)$/i;
	const visible = el => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const containers = [
		'#cmpbox', '#cmpwrapper', '#usercentrics-root', '#onetrust-consent-sdk',
		'#CybotCookiebotDialog', '#cookiebanner', '#cookie-banner', '.cc-window',
		'[id*="cookie-consent"]', '[class*="cookie-consent"]', '[class*="cookie-banner"]',
		'[role="dialog"]', '[aria-modal="true"]', '.modal', '[class*="consent"]',
	];
	for (const sel of containers) {
		for (const root of document.querySelectorAll(sel)) {
			if (!visible(root)) continue;
			const nodes = root.querySelectorAll('button, a, [role="button"], input[type="button"], input[type="submit"]');
			for (const el of nodes) {
				const text = (el.innerText || el.value || '').trim();
				if (accept.test(text) && visible(el)) {
					el.click();
					return true;
				}
			}
		}
	}
	return false;
})()`

// hasConsentDialogJS reports whether a CMP container is present and
// visible.
const hasConsentDialogJS = `(() => {
	const sels = ['#cmpbox', '#cmpwrapper', '#usercentrics-root', '#onetrust-consent-sdk',
		'#CybotCookiebotDialog', '#cookiebanner', '#cookie-banner', '.cc-window',
		'[id*="cookie-consent"]', '[class*="cookie-consent"]', '[class*="cookie-banner"]'];
	for (const sel of sels) {
		for (const el of document.querySelectorAll(sel)) {
			const r = el.getBoundingClientRect();
			if (r.width > 0 && r.height > 0) return true;
		}
	}
	return false;
})()`

// dismissConsent polls for a consent dialog (three 500ms polls) and
// clicks accept-all when one appears. Absence is not an error.
func (f *Fetcher) dismissConsent(ctx context.Context, url string) {
	for poll := 0; poll < 3; poll++ {
		var present bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(hasConsentDialogJS, &present)); err != nil {
			return
		}
		if present {
			break
		}
		if poll == 2 {
			return
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(500*time.Millisecond)); err != nil {
			return
		}
	}

	var clicked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(acceptAllJS, &clicked)); err != nil {
		return
	}
	if clicked {
		f.logger.Debug().Str("url", url).Msg("Cookie consent accepted")
		// let the overlay animate out before we read the DOM
		_ = chromedp.Run(ctx, chromedp.Sleep(500*time.Millisecond))
	}
}
