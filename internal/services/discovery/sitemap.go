package discovery

import (
	"context"
	"encoding/xml"
	"net/url"
	"sort"
	"strings"
)

// maxSitemapURLs caps total collection across nested sitemaps; large
// shops publish six-figure product sitemaps we must not drown in.
const maxSitemapURLs = 300

// maxSitemapDepth bounds sitemap-index recursion.
const maxSitemapDepth = 3

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// collectSitemapURLs gathers page URLs from the site's sitemaps:
// robots.txt Sitemap directives first, conventional locations as
// fallback. Malformed XML is skipped silently.
func (d *Discoverer) collectSitemapURLs(ctx context.Context, base *url.URL) []string {
	root := base.Scheme + "://" + base.Host

	sitemaps := d.sitemapsFromRobots(ctx, root)
	if len(sitemaps) == 0 {
		sitemaps = []string{root + "/sitemap.xml", root + "/sitemap_index.xml"}
	}

	var collected []string
	for _, sm := range sitemaps {
		collected = d.walkSitemap(ctx, sm, collected, 0)
		if len(collected) >= maxSitemapURLs {
			break
		}
	}
	return collected
}

// sitemapsFromRobots reads Sitemap: directives out of robots.txt.
func (d *Discoverer) sitemapsFromRobots(ctx context.Context, root string) []string {
	body, err := d.http.Get(ctx, root+"/robots.txt")
	if err != nil || body == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 8 || !strings.EqualFold(line[:8], "sitemap:") {
			continue
		}
		if loc := strings.TrimSpace(line[8:]); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

// walkSitemap parses one sitemap document, recursing into nested
// sitemaps of an index. Career-looking nested sitemaps are visited
// first so the URL budget is spent where it matters.
func (d *Discoverer) walkSitemap(ctx context.Context, sitemapURL string, collected []string, depth int) []string {
	if depth > maxSitemapDepth || len(collected) >= maxSitemapURLs {
		return collected
	}
	body, err := d.http.Get(ctx, sitemapURL)
	if err != nil || body == "" {
		return collected
	}

	var index sitemapIndex
	if err := xml.Unmarshal([]byte(body), &index); err == nil && len(index.Sitemaps) > 0 {
		nested := make([]string, 0, len(index.Sitemaps))
		for _, sm := range index.Sitemaps {
			if loc := strings.TrimSpace(sm.Loc); loc != "" {
				nested = append(nested, loc)
			}
		}
		sort.SliceStable(nested, func(i, j int) bool {
			return careerURLRe.MatchString(nested[i]) && !careerURLRe.MatchString(nested[j])
		})
		for _, loc := range nested {
			collected = d.walkSitemap(ctx, loc, collected, depth+1)
			if len(collected) >= maxSitemapURLs {
				break
			}
		}
		return collected
	}

	var set urlSet
	if err := xml.Unmarshal([]byte(body), &set); err != nil {
		d.logger.Debug().Str("sitemap", sitemapURL).Msg("Sitemap is not well-formed XML, skipping")
		return collected
	}
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			collected = append(collected, loc)
			if len(collected) >= maxSitemapURLs {
				break
			}
		}
	}
	return collected
}
