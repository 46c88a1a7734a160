package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// siteEntry accepts either a bare URL string or a mapping with a url
// key, so both list styles work:
//
//	sites:
//	  - acme.example
//	  - url: https://other.example/jobs
type siteEntry struct {
	URL string `yaml:"url"`
}

func (e *siteEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&e.URL)
	}
	type plain siteEntry
	return node.Decode((*plain)(e))
}

type sitesManifest struct {
	Sites []siteEntry `yaml:"sites"`
}

// loadSites merges the manifest file with positional URLs, deduplicated
// in order.
func loadSites(path string, args []string) ([]string, error) {
	var urls []string

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var manifest sitesManifest
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, e := range manifest.Sites {
			urls = append(urls, e.URL)
		}
	}
	urls = append(urls, args...)

	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}
