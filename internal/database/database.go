package database

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

// New creates a new database connection pool.
func New(dataSourceName string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	dsn := dataSourceName + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(dataSourceName, ":memory:") {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
func Migrate(db *sql.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		domain TEXT,
		languages_json TEXT,
		location TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		manager_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'active',
		pay_per_task_cents INTEGER NOT NULL DEFAULT 0,
		due_date DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_projects_manager ON projects(manager_id);

	CREATE TABLE IF NOT EXISTS templates (
		id TEXT NOT NULL PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		private INTEGER NOT NULL DEFAULT 0,
		timer_seconds INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT NOT NULL PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		annotator_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		period_start DATETIME NOT NULL,
		period_end DATETIME NOT NULL,
		tasks_count INTEGER NOT NULL,
		amount_cents INTEGER NOT NULL,
		status TEXT NOT NULL,
		paid_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT NOT NULL PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		content TEXT NOT NULL,
		status TEXT NOT NULL,
		annotator_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		reviewer_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		response TEXT,
		feedback TEXT,
		time_taken_seconds INTEGER NOT NULL DEFAULT 0,
		timer_seconds INTEGER NOT NULL DEFAULT 0,
		invoice_id TEXT REFERENCES invoices(id) ON DELETE SET NULL,
		assigned_at DATETIME,
		submitted_at DATETIME,
		reviewed_at DATETIME,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks(project_id, status);
	CREATE INDEX IF NOT EXISTS idx_tasks_annotator ON tasks(annotator_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_reviewer ON tasks(reviewer_id);

	CREATE TABLE IF NOT EXISTS trainings (
		id TEXT NOT NULL PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT,
		webinars_json TEXT,
		invited_json TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS job_posts (
		id TEXT NOT NULL PRIMARY KEY,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT,
		compensation TEXT,
		location TEXT,
		skills_json TEXT,
		status TEXT NOT NULL,
		expires_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS job_applications (
		id TEXT NOT NULL PRIMARY KEY,
		job_post_id TEXT NOT NULL REFERENCES job_posts(id) ON DELETE CASCADE,
		applicant_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		cover_letter TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE(job_post_id, applicant_id)
	);

	CREATE TABLE IF NOT EXISTS wishlist (
		id TEXT NOT NULL PRIMARY KEY,
		manager_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expert_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		note TEXT,
		created_at DATETIME NOT NULL,
		UNIQUE(manager_id, expert_id)
	);

	CREATE TABLE IF NOT EXISTS ingest_jobs (
		id TEXT NOT NULL PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		source_url TEXT NOT NULL,
		status TEXT NOT NULL,
		tasks_created INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at DATETIME NOT NULL,
		started_at DATETIME,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT NOT NULL PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		cron_expression TEXT NOT NULL,
		task_type TEXT NOT NULL, -- ingest, invoice, archive
		payload_json TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		last_run_at DATETIME,
		next_run_at DATETIME,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		type TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		project_id TEXT,
		user_id TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	`
	_, err := db.Exec(sqlStmt)
	return err
}
