package parsers

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/jobradar/internal/models"
)

var (
	pdfExtRe      = regexp.MustCompile(`(?i)\.(pdf|docx?)$`)
	pdfKeywordRe  = regexp.MustCompile(`(?i)stellenausschreibung|stellenangebot|stellenanzeige|jobangebot|jobdescription|job[-_]?description|careerdescription|vacancy|ausschreibung`)
	pdfDateToken  = regexp.MustCompile(`^\d{1,4}([.\-/]\d{1,4}){0,2}$|^20\d{2}$`)
	pdfVersionRe  = regexp.MustCompile(`(?i)^v\d+$|^final$|^neu$|^rev\d*$|^version\d*$`)
	pdfStripWords = map[string]bool{
		"stellenausschreibung": true, "stellenangebot": true,
		"stellenanzeige": true, "jobangebot": true, "jobdescription": true,
		"careerdescription": true, "vacancy": true, "ausschreibung": true,
		"job": true, "stelle": true, "pdf": true, "final": true,
		"ab": true, "sofort": true, "mwd": true, "wmd": true,
	}
	// acronyms kept uppercase when title-casing filename tokens
	pdfAcronyms = map[string]string{
		"it": "IT", "hr": "HR", "qa": "QA", "ceo": "CEO", "cfo": "CFO",
		"cto": "CTO", "sap": "SAP", "crm": "CRM", "erp": "ERP",
		"ui": "UI", "ux": "UX", "ai": "AI", "sps": "SPS", "cnc": "CNC",
	}
)

// ParsePDFLinks finds document links whose filename names a job posting
// and derives a job title from the filename. This is the extraction
// path for small-company sites that publish openings as PDFs.
func ParsePDFLinks(doc *goquery.Document, baseURL string) []models.JobCandidate {
	var out []models.JobCandidate
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		clean := href
		if i := strings.IndexAny(clean, "?#"); i >= 0 {
			clean = clean[:i]
		}
		if !pdfExtRe.MatchString(clean) || seen[href] {
			return
		}
		filename := path.Base(clean)
		if decoded, err := url.PathUnescape(filename); err == nil {
			filename = decoded
		}
		if !pdfKeywordRe.MatchString(filename) && !pdfKeywordRe.MatchString(cleanText(a)) {
			return
		}
		title := TitleFromFilename(filename)
		if title == "" {
			return
		}
		seen[href] = true

		c := candidate("", title, href, "", baseURL)
		c.Source = models.ExtractionPDFLink
		c.Confidence = 0.7
		c.Signal("filename", filename)
		out = append(out, c)
	})
	return FilterNonJobs(out)
}

// TitleFromFilename turns "Stellenausschreibung_IT-Administrator_2024_final.pdf"
// into "IT-Administrator". Tokens are split on underscores, date and
// version tokens dropped, strip-words removed, and the remainder
// title-cased with acronyms kept uppercase.
func TitleFromFilename(filename string) string {
	name := pdfExtRe.ReplaceAllString(filename, "")
	name = strings.ReplaceAll(name, "%20", " ")

	var kept []string
	for _, token := range strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == ' '
	}) {
		low := strings.ToLower(strings.Trim(token, ".,"))
		if low == "" || pdfStripWords[low] || pdfDateToken.MatchString(low) || pdfVersionRe.MatchString(low) {
			continue
		}
		kept = append(kept, token)
	}
	if len(kept) == 0 {
		return ""
	}
	return titleCaseTokens(strings.Join(kept, " "))
}

// TitleFromSlug derives a job title from the last path segment of a
// job-detail URL: "/jobs/senior-backend-engineer-m-w-d-8431" becomes
// "Senior Backend Engineer". Returns "" when nothing title-shaped
// survives token stripping.
func TitleFromSlug(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	seg := path.Base(strings.TrimSuffix(p, "/"))
	if seg == "." || seg == "/" {
		return ""
	}
	if decoded, err := url.PathUnescape(seg); err == nil {
		seg = decoded
	}
	seg = pdfExtRe.ReplaceAllString(seg, "")

	var kept []string
	for _, token := range strings.FieldsFunc(seg, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	}) {
		low := strings.ToLower(token)
		switch {
		case low == "", len(low) == 1,
			pdfStripWords[low],
			pdfDateToken.MatchString(low),
			pdfVersionRe.MatchString(low),
			strings.Trim(low, "0123456789") == "":
			continue
		}
		kept = append(kept, token)
	}
	if len(kept) == 0 {
		return ""
	}
	return titleCaseTokens(strings.Join(kept, " "))
}

// titleCaseTokens capitalizes words, preserving hyphens inside words
// and keeping known acronyms uppercase.
func titleCaseTokens(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		parts := strings.Split(w, "-")
		for j, p := range parts {
			low := strings.ToLower(p)
			if up, ok := pdfAcronyms[low]; ok {
				parts[j] = up
			} else if p != "" {
				runes := []rune(strings.ToLower(p))
				runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
				parts[j] = string(runes)
			}
		}
		words[i] = strings.Join(parts, "-")
	}
	return strings.Join(words, " ")
}
