// Package store persists sites, career URLs, jobs, job history and the
// LLM cache in SQLite. One Store owns one connection; all methods
// serialize on it, which is the concurrency model SQLite wants anyway.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	_ "modernc.org/sqlite"
)

// Store implements interfaces.Store.
type Store struct {
	db     *sql.DB
	logger arbor.ILogger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and applies
// pending migrations.
func Open(path string, logger arbor.ILogger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	// single writer; methods serialize on this one connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", path, err)
	}

	s := &Store{db: db, logger: logger, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies additive schema migrations guarded by PRAGMA
// user_version. Migrations never drop anything.
func (s *Store) migrate() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  domain TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  last_scanned_at TEXT
);`,
		`CREATE TABLE IF NOT EXISTS career_urls (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  url TEXT NOT NULL,
  platform TEXT NOT NULL DEFAULT '',
  is_active INTEGER NOT NULL DEFAULT 1,
  fail_count INTEGER NOT NULL DEFAULT 0,
  last_success_at TEXT,
  last_fail_at TEXT,
  created_at TEXT NOT NULL,
  UNIQUE(site_id, url)
);`,
		`CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
  external_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  title_en TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  location TEXT,
  url TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  salary_from INTEGER NOT NULL DEFAULT 0,
  salary_to INTEGER NOT NULL DEFAULT 0,
  salary_currency TEXT NOT NULL DEFAULT '',
  experience TEXT NOT NULL DEFAULT '',
  employment_type TEXT NOT NULL DEFAULT '',
  skills TEXT NOT NULL DEFAULT '[]',
  extraction_method TEXT NOT NULL DEFAULT '',
  extraction_details TEXT NOT NULL DEFAULT '{}',
  first_seen_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1
);`,
		`CREATE TABLE IF NOT EXISTS job_history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  event TEXT NOT NULL,
  changed_at TEXT NOT NULL,
  details TEXT NOT NULL DEFAULT ''
);`,
		`CREATE TABLE IF NOT EXISTS llm_cache (
  key TEXT PRIMARY KEY,
  namespace TEXT NOT NULL,
  value TEXT NOT NULL,
  model TEXT NOT NULL DEFAULT '',
  ttl_seconds INTEGER NOT NULL,
  created_at TEXT NOT NULL,
  hit_count INTEGER NOT NULL DEFAULT 0,
  tokens_saved INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_site_title_location
  ON jobs(site_id, title, location) WHERE location IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_site_title
  ON jobs(site_id, title) WHERE location IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_sites_domain ON sites(domain);`,
		`CREATE INDEX IF NOT EXISTS idx_career_urls_site ON career_urls(site_id);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_site ON jobs(site_id);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_active ON jobs(is_active);`,
		`CREATE INDEX IF NOT EXISTS idx_job_history_job ON job_history(job_id);`,
		`CREATE INDEX IF NOT EXISTS idx_llm_cache_namespace ON llm_cache(namespace);`,
		`CREATE INDEX IF NOT EXISTS idx_llm_cache_expiry ON llm_cache(created_at, ttl_seconds);`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// timeFormat is how timestamps are stored: fixed-width UTC so that
// lexicographic order equals chronological order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}
