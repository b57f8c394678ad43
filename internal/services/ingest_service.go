package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/storage"
	"github.com/rs/zerolog/log"
)

// ErrJobRunning is returned by RunJob while another run of the job holds it.
var ErrJobRunning = fmt.Errorf("ingest job is running: %w", ErrInvalidTransition)

// IngestStaleAfter is how long a running job may go unfinished before RunJob reclaims it.
// It must exceed the longest allowed run.
const IngestStaleAfter = 15 * time.Minute

// SourceFetcher downloads a source file through the storage proxy.
type SourceFetcher interface {
	Fetch(ctx context.Context, source string) (*storage.Object, error)
}

// IngestServiceProvider defines the interface for CSV ingestion jobs.
type IngestServiceProvider interface {
	CreateJob(projectID, templateID, sourceURL string) (models.IngestJob, error)
	GetJobByID(id string) (models.IngestJob, error)
	GetJobsForProject(projectID string) ([]models.IngestJob, error)
	RunJob(ctx context.Context, id string) (models.IngestJob, error)
}

// IngestService turns remote CSV files into tasks.
type IngestService struct {
	db           *sql.DB
	fetcher      SourceFetcher
	taskService  TaskServiceProvider
	eventService EventServiceProvider
	now          func() time.Time
}

// NewIngestService creates a new IngestService.
func NewIngestService(db *sql.DB, fetcher SourceFetcher, taskService TaskServiceProvider, eventService EventServiceProvider) *IngestService {
	return &IngestService{db: db, fetcher: fetcher, taskService: taskService, eventService: eventService, now: now}
}

const ingestColumns = "id, project_id, template_id, source_url, status, tasks_created, error, created_at, started_at, finished_at"

func scanIngestJob(scanner rowScanner) (models.IngestJob, error) {
	var j models.IngestJob
	var errMsg sql.NullString
	var started, finished sql.NullTime
	if err := scanner.Scan(&j.ID, &j.ProjectID, &j.TemplateID, &j.SourceURL, &j.Status, &j.TasksCreated, &errMsg, &j.CreatedAt, &started, &finished); err != nil {
		return models.IngestJob{}, err
	}
	j.Error = errMsg.String
	j.StartedAt = timePtr(started)
	j.FinishedAt = timePtr(finished)
	return j, nil
}

// CreateJob records a queued ingest job. The template must belong to the project.
func (s *IngestService) CreateJob(projectID, templateID, sourceURL string) (models.IngestJob, error) {
	if sourceURL == "" {
		return models.IngestJob{}, fmt.Errorf("source url is required: %w", ErrInvalidInput)
	}
	var owner string
	if err := s.db.QueryRow("SELECT project_id FROM templates WHERE id = ?", templateID).Scan(&owner); err != nil {
		return models.IngestJob{}, notFound(err, "template", templateID)
	}
	if owner != projectID {
		return models.IngestJob{}, fmt.Errorf("template %s belongs to another project: %w", templateID, ErrInvalidInput)
	}

	job := models.IngestJob{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		TemplateID: templateID,
		SourceURL:  sourceURL,
		Status:     models.IngestQueued,
		CreatedAt:  s.now(),
	}
	_, err := s.db.Exec("INSERT INTO ingest_jobs (id, project_id, template_id, source_url, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		job.ID, job.ProjectID, job.TemplateID, job.SourceURL, job.Status, job.CreatedAt)
	if err != nil {
		return models.IngestJob{}, err
	}
	return job, nil
}

// GetJobByID retrieves a single ingest job.
func (s *IngestService) GetJobByID(id string) (models.IngestJob, error) {
	j, err := scanIngestJob(s.db.QueryRow("SELECT "+ingestColumns+" FROM ingest_jobs WHERE id = ?", id))
	if err != nil {
		return models.IngestJob{}, notFound(err, "ingest job", id)
	}
	return j, nil
}

// GetJobsForProject lists a project's ingest jobs, newest first.
func (s *IngestService) GetJobsForProject(projectID string) ([]models.IngestJob, error) {
	rows, err := s.db.Query("SELECT "+ingestColumns+" FROM ingest_jobs WHERE project_id = ? ORDER BY created_at DESC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []models.IngestJob{}
	for rows.Next() {
		j, err := scanIngestJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// RunJob fetches and parses the job's CSV and creates one task per row.
// Completed jobs are returned unchanged; failed jobs may be run again, as may running jobs
// whose run started more than IngestStaleAfter ago.
func (s *IngestService) RunJob(ctx context.Context, id string) (models.IngestJob, error) {
	started := s.now()
	res, err := s.db.Exec(`UPDATE ingest_jobs SET status = ?, error = NULL, started_at = ?, finished_at = NULL
		WHERE id = ? AND (status IN (?, ?) OR (status = ? AND (started_at IS NULL OR started_at < ?)))`,
		models.IngestRunning, started, id, models.IngestQueued, models.IngestFailed,
		models.IngestRunning, started.Add(-IngestStaleAfter))
	if err != nil {
		return models.IngestJob{}, err
	}
	job, err := s.GetJobByID(id)
	if err != nil {
		return models.IngestJob{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if job.Status == models.IngestCompleted {
			return job, nil
		}
		return job, fmt.Errorf("ingest job %s: %w", id, ErrJobRunning)
	}

	created, runErr := s.ingest(ctx, job)
	if runErr != nil {
		log.Error().Err(runErr).Str("job_id", id).Str("project_id", job.ProjectID).Msg("Ingest job failed")
		if _, err := s.db.Exec("UPDATE ingest_jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
			models.IngestFailed, runErr.Error(), s.now(), id); err != nil {
			return job, err
		}
		s.eventService.CreateEvent("ingest.fail", "error", fmt.Sprintf("Import from %s failed: %v", job.SourceURL, runErr), &job.ProjectID, nil)
		job, _ = s.GetJobByID(id)
		return job, runErr
	}

	if _, err := s.db.Exec("UPDATE ingest_jobs SET status = ?, tasks_created = ?, finished_at = ? WHERE id = ?",
		models.IngestCompleted, created, s.now(), id); err != nil {
		return job, err
	}
	log.Info().Str("job_id", id).Int("tasks", created).Msg("Ingest job completed")
	s.eventService.CreateEvent("ingest.complete", "info", fmt.Sprintf("Imported %d tasks from %s.", created, job.SourceURL), &job.ProjectID, nil)
	return s.GetJobByID(id)
}

func (s *IngestService) ingest(ctx context.Context, job models.IngestJob) (int, error) {
	obj, err := s.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil {
		return 0, err
	}
	table, err := storage.ParseCSV(obj.Body)
	if err != nil {
		return 0, err
	}
	if len(table.Rows) == 0 {
		return 0, fmt.Errorf("csv has no data rows: %w", ErrInvalidInput)
	}
	tasks, err := s.taskService.CreateTasks(job.ProjectID, job.TemplateID, table.Rows)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}
