package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListingMarkerRe(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"greenhouse post", `<div class="job-post"><a href="/x">Engineer</a></div>`, true},
		{"personio link", `<a href="https://acme.jobs.personio.de/job/123">Engineer</a>`, true},
		{"hibob element", `<b-virtual-scroll-list-item></b-virtual-scroll-list-item>`, true},
		{"schema.org", `<script type="application/ld+json">{"@type": "JobPosting"}</script>`, true},
		{"plain page", `<div class="hero"><h1>Welcome to Acme</h1></div>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listingMarkerRe.MatchString(tt.html))
		})
	}
}
