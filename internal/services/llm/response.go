package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/jobradar/internal/interfaces"
	"github.com/ternarybob/jobradar/internal/models"
)

// jobsEnvelope is the canonical shape of an EXTRACT_JOBS response.
type jobsEnvelope struct {
	Jobs []struct {
		Title      string `json:"title"`
		Location   string `json:"location"`
		URL        string `json:"url"`
		Department string `json:"department"`
	} `json:"jobs"`
	NextPageURL string `json:"next_page_url"`
}

// ParseJobsResponse turns a model response into the jobs envelope. It
// accepts raw JSON, markdown-fenced JSON, a {"jobs":...} object located
// anywhere in surrounding prose, or a bare array (normalized into the
// envelope).
func ParseJobsResponse(text string) (*interfaces.ExtractResult, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var env jobsEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err == nil && (env.Jobs != nil || strings.HasPrefix(payload, "{")) {
		return envelopeToResult(&env), nil
	}

	// list-shaped response: normalize into the envelope
	var list []struct {
		Title      string `json:"title"`
		Location   string `json:"location"`
		URL        string `json:"url"`
		Department string `json:"department"`
	}
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, fmt.Errorf("response is neither a jobs object nor a list: %w", err)
	}
	env.Jobs = list
	return envelopeToResult(&env), nil
}

func envelopeToResult(env *jobsEnvelope) *interfaces.ExtractResult {
	res := &interfaces.ExtractResult{
		Jobs:        make([]models.JobCandidate, 0, len(env.Jobs)),
		NextPageURL: strings.TrimSpace(env.NextPageURL),
	}
	if strings.EqualFold(res.NextPageURL, "null") {
		res.NextPageURL = ""
	}
	for _, j := range env.Jobs {
		title := strings.TrimSpace(j.Title)
		if title == "" {
			continue
		}
		res.Jobs = append(res.Jobs, models.JobCandidate{
			Title:      title,
			Location:   strings.TrimSpace(j.Location),
			URL:        strings.TrimSpace(j.URL),
			Department: strings.TrimSpace(j.Department),
			Source:     models.ExtractionLLM,
			Confidence: 0.6,
		})
	}
	return res
}

// extractJSON locates the JSON payload inside a model response:
// markdown fences first, then the first balanced object starting at
// {"jobs" if present, then the first balanced object or array.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	// fenced block
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "\n")
		if j := strings.Index(rest, "```"); j >= 0 {
			if inner := strings.TrimSpace(rest[:j]); inner != "" {
				text = inner
			}
		}
	}

	if json.Valid([]byte(text)) {
		return text
	}
	if i := strings.Index(text, `{"jobs"`); i >= 0 {
		if obj := balanced(text[i:], '{', '}'); obj != "" {
			return obj
		}
	}
	if i := strings.IndexByte(text, '{'); i >= 0 {
		if obj := balanced(text[i:], '{', '}'); obj != "" && json.Valid([]byte(obj)) {
			return obj
		}
	}
	if i := strings.IndexByte(text, '['); i >= 0 {
		if arr := balanced(text[i:], '[', ']'); arr != "" && json.Valid([]byte(arr)) {
			return arr
		}
	}
	return ""
}

// balanced returns the prefix of s spanning one balanced open/close
// pair, respecting JSON string literals.
func balanced(s string, open, close byte) string {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// ParseURLResponse reads a single-URL answer (FIND_CAREERS_PAGE and
// friends). Returns "" for NOT_FOUND or anything that is not URL-ish.
func ParseURLResponse(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`\"' \n")
	if text == "" || strings.EqualFold(text, "NOT_FOUND") {
		return ""
	}
	// models sometimes answer in a sentence; take the first URL-ish token
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, ".,;\"'`<>()")
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") || strings.HasPrefix(field, "/") {
			return field
		}
	}
	if strings.EqualFold(text, "CURRENT_PAGE") {
		return text
	}
	return ""
}

// ParseURLListResponse reads a URL-array answer (FIND_JOB_URLS). It
// accepts the {"urls":[...]} envelope, a bare JSON array, or one URL
// per line of prose.
func ParseURLListResponse(text string) []string {
	if payload := extractJSON(text); payload != "" {
		var env struct {
			URLs []string `json:"urls"`
		}
		if err := json.Unmarshal([]byte(payload), &env); err == nil && env.URLs != nil {
			return trimURLList(env.URLs)
		}
		var list []string
		if err := json.Unmarshal([]byte(payload), &list); err == nil {
			return trimURLList(list)
		}
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		u := ParseURLResponse(line)
		if u != "" && !strings.EqualFold(u, "CURRENT_PAGE") {
			out = append(out, u)
		}
	}
	return out
}

func trimURLList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
