package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobsResponseRawJSON(t *testing.T) {
	res, err := ParseJobsResponse(`{"jobs":[{"title":"Backend Engineer","location":"Berlin","url":"/jobs/1"}],"next_page_url":"https://acme.example/jobs?page=2"}`)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Backend Engineer", res.Jobs[0].Title)
	assert.Equal(t, "Berlin", res.Jobs[0].Location)
	assert.Equal(t, "https://acme.example/jobs?page=2", res.NextPageURL)
}

func TestParseJobsResponseFenced(t *testing.T) {
	text := "Here are the jobs:\n```json\n{\"jobs\":[{\"title\":\"Designer\"}],\"next_page_url\":null}\n```\n"
	res, err := ParseJobsResponse(text)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Designer", res.Jobs[0].Title)
	assert.Empty(t, res.NextPageURL)
}

func TestParseJobsResponseEmbeddedInProse(t *testing.T) {
	text := `I found the following postings on the page. {"jobs":[{"title":"QA Engineer","location":"Remote"}]} Let me know if you need more.`
	res, err := ParseJobsResponse(text)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "QA Engineer", res.Jobs[0].Title)
}

func TestParseJobsResponseListShaped(t *testing.T) {
	res, err := ParseJobsResponse(`[{"title":"Sales Manager","location":"Munich"},{"title":"Accountant"}]`)
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 2)
}

func TestParseJobsResponseNullNextPage(t *testing.T) {
	res, err := ParseJobsResponse(`{"jobs":[{"title":"Chef"}],"next_page_url":"null"}`)
	require.NoError(t, err)
	assert.Empty(t, res.NextPageURL)
}

func TestParseJobsResponseSkipsEmptyTitles(t *testing.T) {
	res, err := ParseJobsResponse(`{"jobs":[{"title":"  "},{"title":"Cook"}]}`)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Cook", res.Jobs[0].Title)
}

func TestParseJobsResponseGarbage(t *testing.T) {
	_, err := ParseJobsResponse("sorry, I cannot help with that")
	assert.Error(t, err)

	_, err = ParseJobsResponse("")
	assert.Error(t, err)
}

func TestParseJobsResponseStringWithBraces(t *testing.T) {
	// braces inside string literals must not confuse the scanner
	res, err := ParseJobsResponse(`prefix {"jobs":[{"title":"Dev {m/w/d}","url":"/x?q={id}"}]} suffix`)
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "Dev {m/w/d}", res.Jobs[0].Title)
}

func TestParseURLResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare url", "https://acme.example/careers", "https://acme.example/careers"},
		{"quoted", `"https://acme.example/jobs"`, "https://acme.example/jobs"},
		{"relative", "/karriere", "/karriere"},
		{"in sentence", "The careers page is at https://acme.example/jobs.", "https://acme.example/jobs"},
		{"not found", "NOT_FOUND", ""},
		{"current page", "CURRENT_PAGE", "CURRENT_PAGE"},
		{"prose only", "I could not locate a careers page on this site", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseURLResponse(tt.in))
		})
	}
}

func TestParseURLListResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"envelope", `{"urls":["/jobs/1","/jobs/2"]}`, []string{"/jobs/1", "/jobs/2"}},
		{"bare array", `["https://acme.example/jobs/1"]`, []string{"https://acme.example/jobs/1"}},
		{"fenced", "```json\n{\"urls\":[\"/jobs/a\"]}\n```", []string{"/jobs/a"}},
		{"whitespace entries trimmed", `{"urls":[" /jobs/1 ",""]}`, []string{"/jobs/1"}},
		{"empty envelope", `{"urls":[]}`, []string{}},
		{"url per line", "https://acme.example/jobs/1\n/jobs/2\nno url here", []string{"https://acme.example/jobs/1", "/jobs/2"}},
		{"prose only", "the page lists no postings", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseURLListResponse(tt.in))
		})
	}
}
