// Package platform identifies embedded ATS platforms from URLs and DOM
// signatures and normalizes board URLs for extraction.
package platform

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Platform tags. These values are persisted in career_urls.platform and
// appear in job extraction_method as "job_board:<tag>".
const (
	Personio        = "personio"
	Greenhouse      = "greenhouse"
	Lever           = "lever"
	Workable        = "workable"
	Recruitee       = "recruitee"
	Ashby           = "ashby"
	Breezy          = "breezy"
	SmartRecruiters = "smartrecruiters"
	BambooHR        = "bamboohr"
	Factorial       = "factorial"
	PIASP           = "pi-asp"
	Odoo            = "odoo"
	HiBob           = "hibob"
	HRworks         = "hrworks"
	Deloitte        = "deloitte"
)

// urlSignature ties a platform tag to its URL shape. Order matters: the
// first match wins.
type urlSignature struct {
	tag string
	re  *regexp.Regexp
}

var urlSignatures = []urlSignature{
	{Personio, regexp.MustCompile(`(?i)[\w-]+\.jobs\.personio\.(de|com)`)},
	{Greenhouse, regexp.MustCompile(`(?i)(job-)?boards?\.greenhouse\.io`)},
	{Lever, regexp.MustCompile(`(?i)jobs\.lever\.co`)},
	{Workable, regexp.MustCompile(`(?i)(apply\.workable\.com|[\w-]+\.workable\.com)`)},
	{Recruitee, regexp.MustCompile(`(?i)[\w-]+\.recruitee\.com`)},
	{Ashby, regexp.MustCompile(`(?i)jobs\.ashbyhq\.com|[\w-]+\.ashbyhq\.com`)},
	{Breezy, regexp.MustCompile(`(?i)[\w-]+\.breezy\.hr`)},
	{SmartRecruiters, regexp.MustCompile(`(?i)(careers|jobs)\.smartrecruiters\.com|[\w-]+\.smartrecruiters\.com`)},
	{BambooHR, regexp.MustCompile(`(?i)[\w-]+\.bamboohr\.com/jobs`)},
	{Factorial, regexp.MustCompile(`(?i)[\w-]+\.factorial\.\w+/job_posting`)},
	{PIASP, regexp.MustCompile(`(?i)[\w-]+\.pi-asp\.de/bewerber-web`)},
	{Deloitte, regexp.MustCompile(`(?i)job\.deloitte\.com`)},
	{HRworks, regexp.MustCompile(`(?i)hrworks\.de`)},
	{HiBob, regexp.MustCompile(`(?i)[\w-]+\.hibob\.com|app\.hibob\.com`)},
}

// Detect identifies the ATS platform serving a URL. When the URL is
// inconclusive and HTML is provided, DOM signatures are consulted
// (Recruitee self-advertises in its footer; Odoo tags its generator
// meta). Returns "" when nothing matches.
func Detect(rawURL, html string) string {
	for _, sig := range urlSignatures {
		if sig.re.MatchString(rawURL) {
			return sig.tag
		}
	}
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return detectFromDOM(doc)
}

func detectFromDOM(doc *goquery.Document) string {
	if gen, ok := doc.Find(`meta[name="generator"]`).Attr("content"); ok &&
		strings.Contains(strings.ToLower(gen), "odoo") {
		return Odoo
	}
	// Recruitee embeds its CDN assets and a "hire with recruitee" footer
	found := ""
	doc.Find("script[src], link[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if src == "" {
			src, _ = s.Attr("href")
		}
		if strings.Contains(src, "recruitee.com") || strings.Contains(src, "rtee-cdn") {
			found = Recruitee
			return false
		}
		return true
	})
	if found != "" {
		return found
	}
	if strings.Contains(strings.ToLower(doc.Text()), "hire with recruitee") {
		return Recruitee
	}
	if doc.Find("b-virtual-scroll-list-item").Length() > 0 {
		return HiBob
	}
	if doc.Find(".oe_website_jobs, .o_website_hr_recruitment_jobs_list").Length() > 0 {
		return Odoo
	}
	return ""
}

// APIBased reports whether a platform is extracted via a JSON API
// endpoint instead of DOM parsing.
func APIBased(tag string) bool {
	return tag == Recruitee
}

// FindExternalBoard scans a page for a link or embed pointing at a
// known external ATS and returns (normalized board URL, platform tag).
// Anchors, iframe sources, lazy data-src attributes and inline scripts
// are all searched.
func FindExternalBoard(html string) (string, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	var boardURL, tag string
	try := func(candidate string) bool {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			return false
		}
		for _, sig := range urlSignatures {
			if sig.re.MatchString(candidate) {
				boardURL = NormalizeBoardURL(candidate, sig.tag)
				tag = sig.tag
				return true
			}
		}
		return false
	}

	doc.Find("a[href], iframe[src], iframe[data-src], [data-src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"href", "src", "data-src"} {
			if v, ok := s.Attr(attr); ok && try(v) {
				return false
			}
		}
		return true
	})
	if boardURL != "" {
		return boardURL, tag
	}

	// inline scripts: widget loaders carry the board URL as a literal
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, m := range scriptURLRe.FindAllString(s.Text(), 20) {
			if try(m) {
				return false
			}
		}
		return true
	})
	return boardURL, tag
}

var scriptURLRe = regexp.MustCompile(`https?://[^\s"'\\]+`)

// NormalizeBoardURL reduces a matched ATS URL to the canonical board
// root for its platform. Greenhouse keeps the company segment, Workable
// keeps the company segment with a trailing slash, Personio strips to
// the host root, Deloitte keeps its query intact.
func NormalizeBoardURL(rawURL, tag string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	switch tag {
	case Personio:
		u.Path, u.RawQuery, u.Fragment = "", "", ""
	case Greenhouse, Lever, Ashby, SmartRecruiters, Breezy:
		u.Path = firstSegment(u.Path)
		u.RawQuery, u.Fragment = "", ""
	case Workable:
		seg := firstSegment(u.Path)
		if seg != "" {
			seg += "/"
		}
		u.Path = seg
		u.RawQuery, u.Fragment = "", ""
	case Deloitte:
		u.Fragment = ""
	default:
		u.Fragment = ""
	}
	return u.String()
}

// firstSegment returns "/first" for "/first/anything" paths.
func firstSegment(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	return "/" + parts[0]
}
