package llm

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const (
	// MaxMarkdownChars bounds the markdown handed to the model.
	MaxMarkdownChars = 80_000
	// MaxDiscoveryChars bounds the cleaned homepage HTML for the
	// careers-page discovery prompt.
	MaxDiscoveryChars = 40_000

	jobSectionMinChars = 1_000
	jobSectionMaxChars = 600_000
)

// jobMarkerRe counts job-vocabulary density; boilerplate containers
// below the density thresholds are stripped before conversion.
var jobMarkerRe = regexp.MustCompile(`(?i)job|career|karriere|stelle|vacanc|position|opening|bewerb|вакансии|работа`)

// cookieRootSelectors are known consent-dialog containers.
var cookieRootSelectors = []string{
	"#cmpbox", "#cmpwrapper", "#usercentrics-root", "#onetrust-consent-sdk",
	"#CybotCookiebotDialog", ".cc-window", "#cookiebanner", "#cookie-banner",
	"[id*=cookie-consent]", "[class*=cookie-consent]", "[aria-label*=cookie]",
}

// jobSectionSelectors locate a content-specific jobs container; when
// one of usable size is found, only it is converted.
var jobSectionSelectors = []string{
	"#jobs", "#careers", "#vacancies", ".jobs-list", ".job-list",
	".career-list", ".vacancies", "[class*=job-listing]", "[class*=joblist]",
	"main [class*=jobs]", ".oe_website_jobs", ".o_website_hr_recruitment_jobs_list",
}

// PrepareHTML reduces page HTML to compact markdown-like text for the
// model: chrome and boilerplate stripped, tables flattened to
// pipe-separated rows, whitespace collapsed, truncated to
// MaxMarkdownChars.
func PrepareHTML(html, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return truncate(collapseWhitespace(stripTags(html)), MaxMarkdownChars)
	}

	doc.Find("script, style, svg, noscript, head, meta, link, iframe").Remove()
	for _, sel := range cookieRootSelectors {
		doc.Find(sel).Remove()
	}

	// boilerplate containers survive only with enough job vocabulary
	doc.Find("nav, header, footer, aside").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		markers := len(jobMarkerRe.FindAllString(text, -1))
		switch {
		case len(text) > 500 && markers >= 3:
		case len(text) > 200 && len(text) <= 500 && markers >= 2:
		case len(text) <= 200 && markers >= 1:
		default:
			s.Remove()
		}
	})

	// strip styling noise that bloats the conversion
	doc.Find("[style]").RemoveAttr("style")
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		for _, attr := range s.Get(0).Attr {
			if strings.HasPrefix(attr.Key, "data-") && attr.Key != "data-src" {
				s.RemoveAttr(attr.Key)
			}
		}
	})

	flattenTables(doc)

	section := findJobSection(doc)
	source, err := section.Html()
	if err != nil || strings.TrimSpace(source) == "" {
		source = html
	}

	converter := md.NewConverter(baseURL, true, nil)
	converted, err := converter.ConvertString(source)
	if err != nil {
		converted = stripTags(source)
	}
	return truncate(collapseWhitespace(converted), MaxMarkdownChars)
}

// findJobSection returns a platform-aware jobs container when one of
// usable size exists, else the whole body.
func findJobSection(doc *goquery.Document) *goquery.Selection {
	for _, sel := range jobSectionSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if h, err := s.Html(); err == nil {
			if n := len(h); n >= jobSectionMinChars && n <= jobSectionMaxChars {
				return s
			}
		}
	}
	if body := doc.Find("body").First(); body.Length() > 0 {
		return body
	}
	return doc.Selection
}

// flattenTables rewrites table rows into pipe-separated text lines so
// the converter cannot inflate them into verbose markdown tables.
func flattenTables(doc *goquery.Document) {
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows []string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				if text := strings.Join(strings.Fields(cell.Text()), " "); text != "" {
					cells = append(cells, text)
				}
			})
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
		})
		table.ReplaceWithHtml("<p>" + strings.Join(rows, "<br>") + "</p>")
	})
}

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	spaceRunsRe  = regexp.MustCompile(`[ \t]{2,}`)
)

func stripTags(html string) string {
	return tagRe.ReplaceAllString(html, " ")
}

func collapseWhitespace(s string) string {
	s = spaceRunsRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	// break at a line boundary when one is near
	if i := strings.LastIndex(cut, "\n"); i > limit-500 {
		cut = cut[:i]
	}
	return cut
}
