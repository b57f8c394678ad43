package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
)

// JobServiceProvider defines the interface for job post and application services.
type JobServiceProvider interface {
	GetPublishedJobPosts() ([]models.JobPost, error)
	GetJobPostsForAuthor(authorID string) ([]models.JobPost, error)
	GetJobPostByID(id string) (models.JobPost, error)
	CreateJobPost(post models.JobPost) (models.JobPost, error)
	UpdateJobPost(id string, post models.JobPost) (models.JobPost, error)
	DeleteJobPost(id string) error
	ExpireJobPosts(at time.Time) (int, error)
	Apply(jobPostID, applicantID, coverLetter string) (models.JobApplication, error)
	GetApplicationsForJob(jobPostID string) ([]models.JobApplication, error)
	GetApplicationByID(id string) (models.JobApplication, error)
	UpdateApplicationStatus(id, status string) (models.JobApplication, error)
}

// JobService provides business logic for job posts and applications.
type JobService struct {
	db           *sql.DB
	eventService EventServiceProvider
}

// NewJobService creates a new JobService.
func NewJobService(db *sql.DB, eventService EventServiceProvider) *JobService {
	return &JobService{db: db, eventService: eventService}
}

const jobPostColumns = "id, author_id, title, description, compensation, location, skills_json, status, expires_at, created_at"

func scanJobPost(scanner rowScanner) (models.JobPost, error) {
	var j models.JobPost
	var desc, comp, loc, skills sql.NullString
	var expires sql.NullTime
	if err := scanner.Scan(&j.ID, &j.AuthorID, &j.Title, &desc, &comp, &loc, &skills, &j.Status, &expires, &j.CreatedAt); err != nil {
		return models.JobPost{}, err
	}
	j.Description = desc.String
	j.Compensation = comp.String
	j.Location = loc.String
	j.SkillsJSON = skills.String
	j.ExpiresAt = timePtr(expires)
	j.PrepareForAPI()
	return j, nil
}

func (s *JobService) listPosts(query string, args ...interface{}) ([]models.JobPost, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.JobPost{}
	for rows.Next() {
		j, err := scanJobPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, j)
	}
	return posts, rows.Err()
}

func validJobStatus(status string) bool {
	return status == models.JobDraft || status == models.JobPublished || status == models.JobClosed
}

// GetPublishedJobPosts retrieves every published job post, newest first.
func (s *JobService) GetPublishedJobPosts() ([]models.JobPost, error) {
	return s.listPosts("SELECT "+jobPostColumns+" FROM job_posts WHERE status = ? ORDER BY created_at DESC", models.JobPublished)
}

// GetJobPostsForAuthor retrieves every job post written by a manager.
func (s *JobService) GetJobPostsForAuthor(authorID string) ([]models.JobPost, error) {
	return s.listPosts("SELECT "+jobPostColumns+" FROM job_posts WHERE author_id = ? ORDER BY created_at DESC", authorID)
}

// GetJobPostByID retrieves a single job post by its ID.
func (s *JobService) GetJobPostByID(id string) (models.JobPost, error) {
	j, err := scanJobPost(s.db.QueryRow("SELECT "+jobPostColumns+" FROM job_posts WHERE id = ?", id))
	if err != nil {
		return models.JobPost{}, notFound(err, "job post", id)
	}
	return j, nil
}

// CreateJobPost adds a new job post. Posts without a status start as drafts.
func (s *JobService) CreateJobPost(post models.JobPost) (models.JobPost, error) {
	if post.Status == "" {
		post.Status = models.JobDraft
	}
	if !validJobStatus(post.Status) {
		return models.JobPost{}, fmt.Errorf("unknown job status %q: %w", post.Status, ErrInvalidInput)
	}
	post.ID = uuid.New().String()
	post.CreatedAt = now()
	post.ExpiresAt = utcPtr(post.ExpiresAt)
	post.PrepareForSave()

	_, err := s.db.Exec("INSERT INTO job_posts("+jobPostColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		post.ID, post.AuthorID, post.Title, post.Description, post.Compensation, post.Location,
		post.SkillsJSON, post.Status, post.ExpiresAt, post.CreatedAt)
	if err != nil {
		return models.JobPost{}, err
	}
	return post, nil
}

// UpdateJobPost updates a job post, including its status.
func (s *JobService) UpdateJobPost(id string, post models.JobPost) (models.JobPost, error) {
	if !validJobStatus(post.Status) {
		return models.JobPost{}, fmt.Errorf("unknown job status %q: %w", post.Status, ErrInvalidInput)
	}
	post.ExpiresAt = utcPtr(post.ExpiresAt)
	post.PrepareForSave()
	res, err := s.db.Exec(`UPDATE job_posts SET title = ?, description = ?, compensation = ?, location = ?, skills_json = ?,
		status = ?, expires_at = ? WHERE id = ?`,
		post.Title, post.Description, post.Compensation, post.Location, post.SkillsJSON, post.Status, post.ExpiresAt, id)
	if err != nil {
		return models.JobPost{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.JobPost{}, fmt.Errorf("job post %s: %w", id, ErrNotFound)
	}
	return s.GetJobPostByID(id)
}

// DeleteJobPost removes a job post and its applications.
func (s *JobService) DeleteJobPost(id string) error {
	res, err := s.db.Exec("DELETE FROM job_posts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job post %s: %w", id, ErrNotFound)
	}
	return nil
}

// ExpireJobPosts closes published posts whose expiry is before at and returns how many were closed.
func (s *JobService) ExpireJobPosts(at time.Time) (int, error) {
	res, err := s.db.Exec("UPDATE job_posts SET status = ? WHERE status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		models.JobClosed, models.JobPublished, at.UTC())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

const applicationColumns = "id, job_post_id, applicant_id, cover_letter, status, created_at"

func scanApplication(scanner rowScanner) (models.JobApplication, error) {
	var a models.JobApplication
	var letter sql.NullString
	if err := scanner.Scan(&a.ID, &a.JobPostID, &a.ApplicantID, &letter, &a.Status, &a.CreatedAt); err != nil {
		return models.JobApplication{}, err
	}
	a.CoverLetter = letter.String
	return a, nil
}

// Apply records an application to a published job post. Applying twice is a conflict.
func (s *JobService) Apply(jobPostID, applicantID, coverLetter string) (models.JobApplication, error) {
	post, err := s.GetJobPostByID(jobPostID)
	if err != nil {
		return models.JobApplication{}, err
	}
	if post.Status != models.JobPublished {
		return models.JobApplication{}, fmt.Errorf("job post %s is not accepting applications: %w", jobPostID, ErrInvalidTransition)
	}

	app := models.JobApplication{
		ID:          uuid.New().String(),
		JobPostID:   jobPostID,
		ApplicantID: applicantID,
		CoverLetter: coverLetter,
		Status:      models.ApplicationApplied,
		CreatedAt:   now(),
	}
	_, err = s.db.Exec("INSERT INTO job_applications("+applicationColumns+") VALUES(?, ?, ?, ?, ?, ?)",
		app.ID, app.JobPostID, app.ApplicantID, app.CoverLetter, app.Status, app.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.JobApplication{}, fmt.Errorf("already applied to job post %s: %w", jobPostID, ErrConflict)
		}
		return models.JobApplication{}, err
	}

	s.eventService.CreateEvent("job.apply", "info", fmt.Sprintf("New application for '%s'.", post.Title), nil, &post.AuthorID)
	return app, nil
}

// GetApplicationsForJob lists the applications of a job post.
func (s *JobService) GetApplicationsForJob(jobPostID string) ([]models.JobApplication, error) {
	rows, err := s.db.Query("SELECT "+applicationColumns+" FROM job_applications WHERE job_post_id = ? ORDER BY created_at", jobPostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := []models.JobApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// GetApplicationByID retrieves a single application.
func (s *JobService) GetApplicationByID(id string) (models.JobApplication, error) {
	a, err := scanApplication(s.db.QueryRow("SELECT "+applicationColumns+" FROM job_applications WHERE id = ?", id))
	if err != nil {
		return models.JobApplication{}, notFound(err, "application", id)
	}
	return a, nil
}

// UpdateApplicationStatus moves an application to a new status and notifies the applicant.
func (s *JobService) UpdateApplicationStatus(id, status string) (models.JobApplication, error) {
	if !models.ValidApplicationStatus(status) {
		return models.JobApplication{}, fmt.Errorf("unknown application status %q: %w", status, ErrInvalidInput)
	}
	app, err := s.GetApplicationByID(id)
	if err != nil {
		return models.JobApplication{}, err
	}
	if _, err := s.db.Exec("UPDATE job_applications SET status = ? WHERE id = ?", status, id); err != nil {
		return models.JobApplication{}, err
	}
	app.Status = status
	s.eventService.CreateEvent("job.application", "info", fmt.Sprintf("Your application status changed to %s.", status), nil, &app.ApplicantID)
	return app, nil
}
