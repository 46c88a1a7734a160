package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/pipeline"
)

// batchReport is the JSON shape written per batch.
type batchReport struct {
	BatchID  string       `json:"batch_id"`
	Started  string       `json:"started"`
	Elapsed  string       `json:"elapsed"`
	Sites    []siteReport `json:"sites"`
	Failed   int          `json:"failed"`
	TotalNew int          `json:"total_new"`
}

type siteReport struct {
	Domain      string       `json:"domain"`
	Status      string       `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	Warning     string       `json:"warning,omitempty"`
	New         []models.Job `json:"new,omitempty"`
	Removed     []models.Job `json:"removed,omitempty"`
	Reactivated []models.Job `json:"reactivated,omitempty"`
	JobCount    int          `json:"job_count"`
}

// reportBatch renders the batch in the configured output format. Text
// goes to stdout; json goes to a timestamped file in the output dir.
func reportBatch(a *app, b *batch) {
	report := buildReport(b)

	switch a.config.Scan.OutputFormat {
	case "json":
		if err := writeJSONReport(a.config.Scan.OutputDir, b, report); err != nil {
			a.logger.Error().Err(err).Msg("Failed to write JSON report")
		}
	default:
		printTextReport(report)
	}
}

func buildReport(b *batch) *batchReport {
	report := &batchReport{
		BatchID: b.id,
		Started: b.started.UTC().Format("2006-01-02T15:04:05Z"),
		Elapsed: b.elapsed.String(),
		Failed:  b.failed,
	}
	for _, out := range b.outcomes {
		if out == nil {
			continue
		}
		sr := siteReport{
			Domain:   out.Domain,
			Status:   string(out.Status),
			Reason:   out.Reason,
			Warning:  out.Warning,
			JobCount: len(out.Jobs),
		}
		if out.Sync != nil {
			sr.New = out.Sync.New
			sr.Removed = out.Sync.Removed
			sr.Reactivated = out.Sync.Reactivated
			report.TotalNew += len(out.Sync.New)
		}
		report.Sites = append(report.Sites, sr)
	}
	return report
}

func printTextReport(report *batchReport) {
	for _, s := range report.Sites {
		switch pipeline.Status(s.Status) {
		case pipeline.StatusFailed:
			fmt.Printf("%-30s FAILED  %s\n", s.Domain, s.Reason)
			continue
		case pipeline.StatusWarn:
			fmt.Printf("%-30s WARN    %d jobs (+%d new, -%d removed)  %s\n",
				s.Domain, s.JobCount, len(s.New), len(s.Removed), s.Warning)
		default:
			fmt.Printf("%-30s OK      %d jobs (+%d new, -%d removed)\n",
				s.Domain, s.JobCount, len(s.New), len(s.Removed))
		}
		for _, j := range s.New {
			title := j.Title
			if j.TitleEN != "" && j.TitleEN != j.Title {
				title = fmt.Sprintf("%s (%s)", j.Title, j.TitleEN)
			}
			fmt.Printf("  + %s", title)
			if j.Location != "" {
				fmt.Printf("  [%s]", j.Location)
			}
			fmt.Println()
		}
		for _, j := range s.Removed {
			fmt.Printf("  - %s\n", j.Title)
		}
	}
	fmt.Printf("\n%d sites, %d new jobs, %d failed\n",
		len(report.Sites), report.TotalNew, report.Failed)
}

func writeJSONReport(dir string, b *batch, report *batchReport) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	name := fmt.Sprintf("scan-%s-%s.json", b.started.UTC().Format("20060102-150405"), b.id[:8])
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0644)
}
