package common

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeInputURL coerces user input into a fetchable URL, adding the
// https scheme when missing.
func NormalizeInputURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: no host", raw)
	}
	return u.String(), nil
}

// DomainOf extracts the canonical site domain from a URL: lowercase
// host with any leading "www." and port stripped.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// CanonicalizeCareerURL reduces a career URL to scheme+host+path with
// query and fragment stripped and no trailing slash. This is the form
// persisted in career_urls.
func CanonicalizeCareerURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// RegistrableDomain returns the eTLD+1 for a URL or bare host
// ("karriere.synqony.com" -> "synqony.com"). Falls back to the raw
// host when the public suffix list has no answer.
func RegistrableDomain(rawURL string) string {
	host := rawURL
	if strings.Contains(rawURL, "://") || strings.Contains(rawURL, "/") {
		if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	etld, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld
}

// SameRegistrableDomain reports whether two URLs share an eTLD+1. A
// "www." difference never makes two URLs external to each other.
func SameRegistrableDomain(a, b string) bool {
	ra, rb := RegistrableDomain(a), RegistrableDomain(b)
	return ra != "" && ra == rb
}

var baseNameSplit = regexp.MustCompile(`(\d+[a-z]?)([a-z].*)`)

// CompanyNameVariants derives morphological variants of a domain's base
// name for the source-company filter: "2rsoftware.de" yields
// ["2rsoftware", "2r software", "2r"].
func CompanyNameVariants(domain string) []string {
	base := RegistrableDomain(domain)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.ToLower(base)
	if base == "" {
		return nil
	}

	seen := map[string]bool{base: true}
	variants := []string{base}
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}

	add(strings.ReplaceAll(base, "-", " "))
	add(strings.ReplaceAll(base, "-", ""))

	// split a leading digit(+letter) prefix from the rest: 2rsoftware -> "2r software", "2r"
	if m := baseNameSplit.FindStringSubmatch(base); m != nil && len(m[1]) < len(base) {
		add(m[1] + " " + m[2])
		add(m[1])
	}
	return variants
}

// ResolveURL resolves a possibly-relative href against a base URL.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	hu, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return bu.ResolveReference(hu).String()
}
