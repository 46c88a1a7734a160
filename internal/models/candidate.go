package models

// JobCandidate is an in-flight extracted job record with provenance.
// Candidates are produced by parsers and extractors and converted to
// persisted Jobs at the store boundary.
type JobCandidate struct {
	Title          string           `json:"title"`
	URL            string           `json:"url,omitempty"`
	Location       string           `json:"location,omitempty"`
	Department     string           `json:"department,omitempty"`
	Company        string           `json:"company,omitempty"`
	ExternalID     string           `json:"external_id,omitempty"`
	EmploymentType string           `json:"employment_type,omitempty"`
	Source         ExtractionMethod `json:"source"`
	Confidence     float64          `json:"confidence"` // in [0,1]
	Signals        map[string]any   `json:"signals,omitempty"`
}

// Signal records an opaque provenance hint on the candidate.
func (c *JobCandidate) Signal(key string, value any) {
	if c.Signals == nil {
		c.Signals = make(map[string]any)
	}
	c.Signals[key] = value
}
