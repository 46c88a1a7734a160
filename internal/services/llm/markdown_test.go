package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepareHTMLStripsChrome(t *testing.T) {
	html := `<html><head><title>Acme</title></head><body>
<div id="cmpbox">We value your privacy. Accept all cookies.</div>
<nav><a href="/">Home</a><a href="/about">About</a><a href="/contact">Contact</a></nav>
<script>window.dataLayer=[];</script>
<main><h1>Open Positions</h1>
<a href="/jobs/1">Backend Engineer</a>
<a href="/jobs/2">Frontend Engineer</a></main>
</body></html>`

	out := PrepareHTML(html, "https://acme.example")
	assert.Contains(t, out, "Backend Engineer")
	assert.Contains(t, out, "Frontend Engineer")
	assert.NotContains(t, out, "Accept all cookies")
	assert.NotContains(t, out, "dataLayer")
	// nav with zero job vocabulary is boilerplate
	assert.NotContains(t, out, "Contact")
}

func TestPrepareHTMLKeepsJobBearingNav(t *testing.T) {
	html := `<html><body>
<nav><a href="/jobs">Jobs</a></nav>
<p>Welcome</p>
</body></html>`

	out := PrepareHTML(html, "https://acme.example")
	assert.Contains(t, out, "Jobs")
}

func TestPrepareHTMLFlattensTables(t *testing.T) {
	html := `<html><body><table>
<tr><th>Title</th><th>Location</th></tr>
<tr><td>Warehouse Worker</td><td>Hamburg</td></tr>
</table></body></html>`

	out := PrepareHTML(html, "https://acme.example")
	assert.Contains(t, out, "Warehouse Worker")
	assert.Contains(t, out, "Hamburg")
	assert.NotContains(t, out, "<tr>")
}

func TestPrepareHTMLTruncates(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 20_000; i++ {
		b.WriteString("<p>Software Engineer position in Berlin office</p>\n")
	}
	b.WriteString("</body></html>")

	out := PrepareHTML(b.String(), "https://acme.example")
	assert.LessOrEqual(t, len(out), MaxMarkdownChars)
	assert.NotEmpty(t, out)
}

func TestPrepareHTMLIsolatesJobSection(t *testing.T) {
	var filler strings.Builder
	for i := 0; i < 100; i++ {
		filler.WriteString("<p>Our company history paragraph number entry text block</p>")
	}
	html := `<html><body>` + filler.String() +
		`<div id="jobs">` + strings.Repeat(`<a href="/jobs/x">Machine Operator Production Line Day Shift</a>`, 30) +
		`</div></body></html>`

	out := PrepareHTML(html, "https://acme.example")
	assert.Contains(t, out, "Machine Operator")
	assert.NotContains(t, out, "company history")
}
