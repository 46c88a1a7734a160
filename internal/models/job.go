package models

import (
	"encoding/json"
	"time"
)

// ExtractionMethod tags how a job was extracted from a page.
type ExtractionMethod string

const (
	ExtractionSchemaOrg ExtractionMethod = "schema_org"
	ExtractionPDFLink   ExtractionMethod = "pdf_link"
	ExtractionLLM       ExtractionMethod = "llm"
)

// ExtractionJobBoard returns the method tag for a platform-specific
// ATS parser, e.g. "job_board:personio".
func ExtractionJobBoard(platform string) ExtractionMethod {
	return ExtractionMethod("job_board:" + platform)
}

// Job is one externally observed vacancy persisted for a site.
// Uniqueness key is (site, normalized title, normalized location);
// FirstSeenAt is immutable and LastSeenAt is monotonic non-decreasing.
type Job struct {
	ID             int64            `json:"id"`
	SiteID         int64            `json:"site_id"`
	ExternalID     string           `json:"external_id,omitempty"`
	Title          string           `json:"title"`
	TitleEN        string           `json:"title_en,omitempty"`
	Company        string           `json:"company"`
	Location       string           `json:"location,omitempty"`
	URL            string           `json:"url,omitempty"`
	Description    string           `json:"description,omitempty"`
	SalaryFrom     int              `json:"salary_from,omitempty"`
	SalaryTo       int              `json:"salary_to,omitempty"`
	SalaryCurrency string           `json:"salary_currency,omitempty"`
	Experience     string           `json:"experience,omitempty"`
	EmploymentType string           `json:"employment_type,omitempty"`
	Skills         []string         `json:"skills,omitempty"`
	Method         ExtractionMethod `json:"extraction_method"`
	Details        map[string]any   `json:"extraction_details,omitempty"`
	FirstSeenAt    time.Time        `json:"first_seen_at"`
	LastSeenAt     time.Time        `json:"last_seen_at"`
	IsActive       bool             `json:"is_active"`
}

// SkillsJSON renders the skills list as a JSON array string for storage.
func (j *Job) SkillsJSON() string {
	if len(j.Skills) == 0 {
		return "[]"
	}
	b, err := json.Marshal(j.Skills)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DetailsJSON renders the opaque extraction details blob for storage.
func (j *Job) DetailsJSON() string {
	if len(j.Details) == 0 {
		return "{}"
	}
	b, err := json.Marshal(j.Details)
	if err != nil {
		return "{}"
	}
	return string(b)
}
