// Package normalize canonicalizes job titles and locations for
// deduplication keys, and filters out entries that are submission
// channels rather than actual postings.
package normalize

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)

	// trailing job-board suffixes appended by some portals
	boardSuffixRe = regexp.MustCompile(`(?i)\s*[-–—|:]?\s*(job advert|job offer|stellenanzeige|stellenangebot|jetzt bewerben|apply now|read more|mehr erfahren)\.?\s*$`)

	// gender notation: "(m/w/d)", "(f/d/m)", "(all genders)", bare "m/w/d" at end
	genderParenRe = regexp.MustCompile(`(?i)\s*\(\s*(?:[mwfdx]\s*[/|]\s*){1,3}[mwfdx]\s*\)|\s*\(\s*all\s+genders?\s*\)|\s*\(\s*gn\s*\)`)
	genderBareRe  = regexp.MustCompile(`(?i)\s+(?:[mwfdx]\s*/\s*){1,3}[mwfdx]\s*$`)

	// trailing salary / employment appendix: "– Vollzeit: 30.000–40.000 Euro Jahresgehalt."
	salaryAppendixRe = regexp.MustCompile(`(?i)\s*[-–—]\s*(vollzeit|teilzeit|full[- ]?time|part[- ]?time)?\s*:?\s*[\d.,]+\s*[-–—]\s*[\d.,]+\s*(euro?|eur|€)\s*\w*\.?\s*$`)

	trailingAllRe = regexp.MustCompile(`(?i)\s*\(all\)\s*$`)
)

// germanPlurals maps plural role words to their singular for common
// job-title nouns. Applied word-by-word, longest entries first.
var germanPlurals = []struct{ plural, singular string }{
	{"telefonisten", "telefonist"},
	{"mitarbeiterinnen", "mitarbeiter"},
	{"mitarbeiterin", "mitarbeiter"},
	{"mitarbeitende", "mitarbeiter"},
	{"entwicklerinnen", "entwickler"},
	{"entwicklerin", "entwickler"},
	{"beraterinnen", "berater"},
	{"beraterin", "berater"},
	{"ingenieurinnen", "ingenieur"},
	{"ingenieurin", "ingenieur"},
	{"assistenten", "assistent"},
	{"assistentin", "assistent"},
	{"kaufleute", "kaufmann"},
}

// Title canonicalizes a job title for use in dedup keys. The result is
// stable: Title(Title(x)) == Title(x).
func Title(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = boardSuffixRe.ReplaceAllString(s, "")
	s = genderParenRe.ReplaceAllString(s, " ")
	s = genderBareRe.ReplaceAllString(s, "")
	s = salaryAppendixRe.ReplaceAllString(s, "")
	s = trailingAllRe.ReplaceAllString(s, "")

	words := strings.Fields(s)
	for i, w := range words {
		for _, p := range germanPlurals {
			if w == p.plural {
				words[i] = p.singular
				break
			}
		}
	}
	s = strings.Join(words, " ")
	s = strings.Trim(s, " -–—|,:")
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// countrySuffixes are stripped from the end of a location, with or
// without a preceding comma.
var countrySuffixes = []string{
	"deutschland", "germany", "österreich", "austria", "schweiz",
	"switzerland", "united kingdom", "great britain", "uk", "usa",
	"united states", "italy", "italien", "france", "frankreich",
	"netherlands", "niederlande", "spain", "spanien", "poland", "polen",
}

// modeSuffixes are employment-mode markers stripped from the end of a
// location.
var modeSuffixes = []string{
	"vollzeit", "teilzeit", "full-time", "full time", "part-time",
	"part time", "remote", "hybrid", "onsite", "on-site",
	"inkl. home office", "home office", "homeoffice", "mobiles arbeiten",
}

// Location canonicalizes a location for use in dedup keys. The result
// is stable under re-application.
func Location(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	for changed := true; changed; {
		changed = false
		s = strings.Trim(s, " ,;-–—/|()")
		for _, suffix := range append(countrySuffixes, modeSuffixes...) {
			if strings.HasSuffix(s, suffix) && len(s) > len(suffix) {
				// word boundary: never truncate inside a city name
				// ("innsbruck" must not lose a trailing "uk")
				prev := s[len(s)-len(suffix)-1]
				if prev == ' ' || prev == ',' || prev == '(' || prev == '/' || prev == '-' {
					s = strings.TrimSuffix(s, suffix)
					changed = true
				}
			} else if s == suffix && isMode(suffix) {
				// a bare mode marker is not a location at all
				s = ""
			}
		}
	}
	s = strings.Trim(s, " ,;-–—/|()")
	return whitespaceRe.ReplaceAllString(s, " ")
}

func isMode(s string) bool {
	for _, m := range modeSuffixes {
		if s == m {
			return true
		}
	}
	return false
}

// nonJobRe matches submission channels masquerading as postings.
var nonJobRe = regexp.MustCompile(`(?i)initiativbewerbung|spontanbewerbung|blindbewerbung|unsolicited\s+application|open\s+application|speculative\s+application|general\s+application|talent\s+(pool|community|network)|keine\s+passende\s+stelle|nothing\s+(that\s+)?fits`)

// IsNonJob reports whether a title names a submission channel rather
// than a vacancy. The check runs on the normalized title.
func IsNonJob(title string) bool {
	return nonJobRe.MatchString(Title(title))
}

// companyNameRe matches titles that are really company names (footer
// links and imprint noise picked up by loose extractors).
var companyNameRe = regexp.MustCompile(`\b(GmbH|mbH|AG|SE|KG|OHG|GbR|e\.V\.|Ltd\.?|Limited|Inc\.?|LLC|S\.A\.|B\.V\.)\s*$|^[A-Z][A-Z&\s]+International$`)

// IsCompanyName reports whether a raw title looks like a legal company
// name rather than a job title.
func IsCompanyName(title string) bool {
	return companyNameRe.MatchString(strings.TrimSpace(title))
}
