package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/jobradar/internal/models"
	"github.com/ternarybob/jobradar/internal/services/normalize"
)

// jobKey is the dedup identity of a job within a site: normalized
// title plus normalized location.
func jobKey(title, location string) string {
	return normalize.Title(title) + "\x00" + normalize.Location(location)
}

// SyncJobs diffs the freshly extracted jobs against the persisted set
// for the site. Everything happens in one transaction: either the whole
// delta commits or nothing does. Calling it twice with the same input
// yields an empty delta the second time.
func (s *Store) SyncJobs(ctx context.Context, siteID int64, current []models.Job) (*models.SyncResult, error) {
	now := s.now()
	nowStr := formatTime(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := loadSiteJobs(ctx, tx, siteID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*models.Job, len(existing))
	for i := range existing {
		byKey[jobKey(existing[i].Title, existing[i].Location)] = &existing[i]
	}

	result := &models.SyncResult{FirstScan: len(existing) == 0}
	seen := make(map[string]bool, len(current))

	for i := range current {
		job := current[i]
		key := jobKey(job.Title, job.Location)
		if seen[key] {
			continue
		}
		seen[key] = true

		if prior, ok := byKey[key]; ok {
			if _, err := tx.ExecContext(ctx,
				`UPDATE jobs SET last_seen_at = ?,
				   url = CASE WHEN ? != '' THEN ? ELSE url END,
				   title_en = CASE WHEN ? != '' THEN ? ELSE title_en END
				 WHERE id = ?`,
				nowStr, job.URL, job.URL, job.TitleEN, job.TitleEN, prior.ID); err != nil {
				return nil, fmt.Errorf("update job %d: %w", prior.ID, err)
			}
			if !prior.IsActive {
				if _, err := tx.ExecContext(ctx,
					`UPDATE jobs SET is_active = 1 WHERE id = ?`, prior.ID); err != nil {
					return nil, err
				}
				if err := appendHistory(ctx, tx, prior.ID, models.JobEventReactivated, nowStr, ""); err != nil {
					return nil, err
				}
				reactivated := *prior
				reactivated.IsActive = true
				reactivated.LastSeenAt = now
				result.Reactivated = append(result.Reactivated, reactivated)
			}
			continue
		}

		job.SiteID = siteID
		job.IsActive = true
		job.FirstSeenAt = now
		job.LastSeenAt = now
		id, err := insertJob(ctx, tx, &job, nowStr)
		if err != nil {
			return nil, err
		}
		job.ID = id
		if err := appendHistory(ctx, tx, id, models.JobEventAdded, nowStr, ""); err != nil {
			return nil, err
		}
		result.New = append(result.New, job)
	}

	for key := range byKey {
		prior := byKey[key]
		if seen[key] || !prior.IsActive {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET is_active = 0 WHERE id = ?`, prior.ID); err != nil {
			return nil, err
		}
		if err := appendHistory(ctx, tx, prior.ID, models.JobEventRemoved, nowStr, ""); err != nil {
			return nil, err
		}
		removed := *prior
		removed.IsActive = false
		result.Removed = append(result.Removed, removed)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync: %w", err)
	}

	s.logger.Info().
		Int64("site_id", siteID).
		Int("new", len(result.New)).
		Int("removed", len(result.Removed)).
		Int("reactivated", len(result.Reactivated)).
		Bool("first_scan", result.FirstScan).
		Msg("Jobs synced")
	return result, nil
}

// CountJobs returns the all-time job count for a site, active and
// inactive. Feeds the stale-cache suspicion heuristic.
func (s *Store) CountJobs(ctx context.Context, siteID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE site_id = ?`, siteID).Scan(&n)
	return n, err
}

// ActiveJobs returns the currently active jobs for a site.
func (s *Store) ActiveJobs(ctx context.Context, siteID int64) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		selectJobs+` WHERE site_id = ? AND is_active = 1 ORDER BY title`, siteID)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// JobHistory returns the audit trail for one job, oldest first.
func (s *Store) JobHistory(ctx context.Context, jobID int64) ([]models.JobHistoryEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, event, changed_at, details
		 FROM job_history WHERE job_id = ? ORDER BY changed_at, id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("job history: %w", err)
	}
	defer rows.Close()

	var out []models.JobHistoryEvent
	for rows.Next() {
		var e models.JobHistoryEvent
		var event, changedAt string
		if err := rows.Scan(&e.ID, &e.JobID, &event, &changedAt, &e.Details); err != nil {
			return nil, err
		}
		e.Event = models.JobEvent(event)
		e.ChangedAt = parseTime(changedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectJobs = `SELECT id, site_id, external_id, title, title_en, company,
  location, url, description, salary_from, salary_to, salary_currency,
  experience, employment_type, skills, extraction_method,
  extraction_details, first_seen_at, last_seen_at, is_active FROM jobs`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func loadSiteJobs(ctx context.Context, q querier, siteID int64) ([]models.Job, error) {
	rows, err := q.QueryContext(ctx, selectJobs+` WHERE site_id = ?`, siteID)
	if err != nil {
		return nil, fmt.Errorf("load site jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]models.Job, error) {
	var out []models.Job
	for rows.Next() {
		var j models.Job
		var location sql.NullString
		var skills, details, method, firstSeen, lastSeen string
		if err := rows.Scan(&j.ID, &j.SiteID, &j.ExternalID, &j.Title, &j.TitleEN,
			&j.Company, &location, &j.URL, &j.Description,
			&j.SalaryFrom, &j.SalaryTo, &j.SalaryCurrency,
			&j.Experience, &j.EmploymentType, &skills, &method,
			&details, &firstSeen, &lastSeen, &j.IsActive); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Location = location.String
		j.Method = models.ExtractionMethod(method)
		j.Skills = decodeSkills(skills)
		j.Details = decodeDetails(details)
		j.FirstSeenAt = parseTime(firstSeen)
		j.LastSeenAt = parseTime(lastSeen)
		out = append(out, j)
	}
	return out, rows.Err()
}

func insertJob(ctx context.Context, q querier, j *models.Job, nowStr string) (int64, error) {
	var location any
	if j.Location != "" {
		location = j.Location
	}
	res, err := q.ExecContext(ctx,
		`INSERT INTO jobs (site_id, external_id, title, title_en, company,
		   location, url, description, salary_from, salary_to, salary_currency,
		   experience, employment_type, skills, extraction_method,
		   extraction_details, first_seen_at, last_seen_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		j.SiteID, j.ExternalID, j.Title, j.TitleEN, j.Company,
		location, j.URL, j.Description, j.SalaryFrom, j.SalaryTo, j.SalaryCurrency,
		j.Experience, j.EmploymentType, j.SkillsJSON(), string(j.Method),
		j.DetailsJSON(), nowStr, nowStr)
	if err != nil {
		return 0, fmt.Errorf("insert job %q: %w", j.Title, err)
	}
	return res.LastInsertId()
}

func appendHistory(ctx context.Context, q querier, jobID int64, event models.JobEvent, nowStr, details string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO job_history (job_id, event, changed_at, details) VALUES (?, ?, ?, ?)`,
		jobID, string(event), nowStr, details)
	if err != nil {
		return fmt.Errorf("append history %s for job %d: %w", event, jobID, err)
	}
	return nil
}

func decodeSkills(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func decodeDetails(s string) map[string]any {
	if s == "" || s == "{}" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
