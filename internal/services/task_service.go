package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
)

// TaskServiceProvider defines the interface for task services.
type TaskServiceProvider interface {
	CreateTasks(projectID, templateID string, rows []map[string]string) ([]models.Task, error)
	GetTaskByID(id string) (models.Task, error)
	GetTasksForProject(projectID, status string) ([]models.Task, error)
	GetTasksForAnnotator(annotatorID, status string) ([]models.Task, error)
	GetTasksForReviewer(reviewerID string) ([]models.Task, error)
	AssignTasks(projectID string, annotatorIDs []string, perAnnotator int) (int, error)
	ReassignTask(taskID, annotatorID string) (models.Task, error)
	SetReviewer(taskID, reviewerID string) (models.Task, error)
	SubmitTask(taskID, annotatorID string, response json.RawMessage, timeTakenSeconds int) (models.Task, error)
	ReviewTask(taskID, reviewerID string, accept bool, feedback string) (models.Task, error)
	DeleteTask(id string) error
}

// TaskService provides business logic for the annotation task lifecycle.
type TaskService struct {
	db              *sql.DB
	templateService TemplateServiceProvider
	eventService    EventServiceProvider
}

// NewTaskService creates a new TaskService.
func NewTaskService(db *sql.DB, templateService TemplateServiceProvider, eventService EventServiceProvider) *TaskService {
	return &TaskService{db: db, templateService: templateService, eventService: eventService}
}

const taskColumns = `id, project_id, template_id, name, content, status, annotator_id, reviewer_id, response, feedback,
	time_taken_seconds, timer_seconds, invoice_id, assigned_at, submitted_at, reviewed_at, created_at`

func scanTask(scanner rowScanner) (models.Task, error) {
	var t models.Task
	var content string
	var annotator, reviewer, response, feedback, invoice sql.NullString
	var assigned, submitted, reviewed sql.NullTime
	err := scanner.Scan(&t.ID, &t.ProjectID, &t.TemplateID, &t.Name, &content, &t.Status,
		&annotator, &reviewer, &response, &feedback, &t.TimeTakenSeconds, &t.TimerSeconds, &invoice,
		&assigned, &submitted, &reviewed, &t.CreatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.Content = json.RawMessage(content)
	t.AnnotatorID = stringPtr(annotator)
	t.ReviewerID = stringPtr(reviewer)
	if response.Valid && response.String != "" {
		t.Response = json.RawMessage(response.String)
	}
	t.Feedback = feedback.String
	t.InvoiceID = stringPtr(invoice)
	t.AssignedAt = timePtr(assigned)
	t.SubmittedAt = timePtr(submitted)
	t.ReviewedAt = timePtr(reviewed)
	return t, nil
}

func (s *TaskService) list(query string, args ...interface{}) ([]models.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTasks renders the template once per row and stores the resulting pending tasks.
func (s *TaskService) CreateTasks(projectID, templateID string, rows []map[string]string) ([]models.Task, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows to create tasks from: %w", ErrInvalidInput)
	}
	tmpl, err := s.templateService.GetTemplateByID(templateID)
	if err != nil {
		return nil, err
	}
	if tmpl.ProjectID != projectID {
		return nil, fmt.Errorf("template %s belongs to another project: %w", templateID, ErrInvalidInput)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO tasks (id, project_id, template_id, name, content, status, timer_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	created := make([]models.Task, 0, len(rows))
	for i, row := range rows {
		content := tmpl.Render(row)
		if !json.Valid([]byte(content)) {
			return nil, fmt.Errorf("row %d renders invalid content: %w", i+1, ErrInvalidInput)
		}
		task := models.Task{
			ID:           uuid.New().String(),
			ProjectID:    projectID,
			TemplateID:   templateID,
			Name:         taskName(tmpl.Name, row, i),
			Content:      json.RawMessage(content),
			Status:       models.TaskPending,
			TimerSeconds: tmpl.TimerSeconds,
			CreatedAt:    now(),
		}
		if _, err := stmt.Exec(task.ID, task.ProjectID, task.TemplateID, task.Name, content, task.Status, task.TimerSeconds, task.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to insert task %d: %w", i+1, err)
		}
		created = append(created, task)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.eventService.CreateEvent("task.create", "info", fmt.Sprintf("%d tasks created from template '%s'.", len(created), tmpl.Name), &projectID, nil)
	return created, nil
}

// taskName uses a "name" or "title" column when present.
func taskName(templateName string, row map[string]string, index int) string {
	for _, key := range []string{"name", "title", "Name", "Title"} {
		if v := strings.TrimSpace(row[key]); v != "" {
			return v
		}
	}
	return fmt.Sprintf("%s #%d", templateName, index+1)
}

// GetTaskByID retrieves a single task by its ID.
func (s *TaskService) GetTaskByID(id string) (models.Task, error) {
	t, err := scanTask(s.db.QueryRow("SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if err != nil {
		return models.Task{}, notFound(err, "task", id)
	}
	return t, nil
}

// GetTasksForProject lists a project's tasks, optionally filtered by status.
func (s *TaskService) GetTasksForProject(projectID, status string) ([]models.Task, error) {
	if status != "" {
		return s.list("SELECT "+taskColumns+" FROM tasks WHERE project_id = ? AND status = ? ORDER BY created_at", projectID, status)
	}
	return s.list("SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY created_at", projectID)
}

// GetTasksForAnnotator lists the tasks assigned to an annotator, optionally filtered by status.
func (s *TaskService) GetTasksForAnnotator(annotatorID, status string) ([]models.Task, error) {
	if status != "" {
		return s.list("SELECT "+taskColumns+" FROM tasks WHERE annotator_id = ? AND status = ? ORDER BY assigned_at DESC", annotatorID, status)
	}
	return s.list("SELECT "+taskColumns+" FROM tasks WHERE annotator_id = ? ORDER BY assigned_at DESC", annotatorID)
}

// GetTasksForReviewer lists submitted tasks waiting for the reviewer.
func (s *TaskService) GetTasksForReviewer(reviewerID string) ([]models.Task, error) {
	return s.list("SELECT "+taskColumns+" FROM tasks WHERE reviewer_id = ? AND status = ? ORDER BY submitted_at", reviewerID, models.TaskSubmitted)
}

type queryRower interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func userRole(q queryRower, userID string) (string, error) {
	var role string
	if err := q.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role); err != nil {
		return "", notFound(err, "user", userID)
	}
	return role, nil
}

func (s *TaskService) requireAnnotator(q queryRower, userID string) error {
	role, err := userRole(q, userID)
	if err != nil {
		return err
	}
	if role != models.RoleAnnotator {
		return fmt.Errorf("user %s is not an annotator: %w", userID, ErrInvalidInput)
	}
	return nil
}

// AssignTasks distributes the project's pending tasks, oldest first, round-robin over the annotators.
// perAnnotator caps the tasks each annotator receives; 0 means no cap. It returns the number assigned.
func (s *TaskService) AssignTasks(projectID string, annotatorIDs []string, perAnnotator int) (int, error) {
	if len(annotatorIDs) == 0 {
		return 0, fmt.Errorf("at least one annotator is required: %w", ErrInvalidInput)
	}
	if perAnnotator < 0 {
		return 0, fmt.Errorf("per-annotator limit must not be negative: %w", ErrInvalidInput)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	seen := make(map[string]bool)
	var annotators []string
	for _, id := range annotatorIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := s.requireAnnotator(tx, id); err != nil {
			return 0, err
		}
		annotators = append(annotators, id)
	}

	query := "SELECT id FROM tasks WHERE project_id = ? AND status = ? ORDER BY created_at, id"
	args := []interface{}{projectID, models.TaskPending}
	if perAnnotator > 0 {
		query += " LIMIT ?"
		args = append(args, perAnnotator*len(annotators))
	}
	rows, err := tx.Query(query, args...)
	if err != nil {
		return 0, err
	}
	var taskIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		taskIDs = append(taskIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	assignedAt := now()
	counts := make(map[string]int)
	for i, taskID := range taskIDs {
		annotator := annotators[i%len(annotators)]
		if _, err := tx.Exec("UPDATE tasks SET annotator_id = ?, status = ?, assigned_at = ? WHERE id = ?",
			annotator, models.TaskAssigned, assignedAt, taskID); err != nil {
			return 0, err
		}
		counts[annotator]++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	for _, annotator := range annotators {
		if counts[annotator] == 0 {
			continue
		}
		id := annotator
		s.eventService.CreateEvent("task.assign", "info", fmt.Sprintf("%d new tasks were assigned to you.", counts[annotator]), &projectID, &id)
	}
	return len(taskIDs), nil
}

// ReassignTask moves a task that has not been accepted to another annotator and clears previous work.
func (s *TaskService) ReassignTask(taskID, annotatorID string) (models.Task, error) {
	task, err := s.GetTaskByID(taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status == models.TaskAccepted {
		return models.Task{}, fmt.Errorf("task %s is already accepted: %w", taskID, ErrInvalidTransition)
	}
	if err := s.requireAnnotator(s.db, annotatorID); err != nil {
		return models.Task{}, err
	}
	if task.ReviewedBy(annotatorID) {
		return models.Task{}, fmt.Errorf("the reviewer cannot annotate the same task: %w", ErrInvalidInput)
	}

	_, err = s.db.Exec(`UPDATE tasks SET annotator_id = ?, status = ?, assigned_at = ?, response = NULL, feedback = NULL,
		time_taken_seconds = 0, submitted_at = NULL, reviewed_at = NULL WHERE id = ?`,
		annotatorID, models.TaskAssigned, now(), taskID)
	if err != nil {
		return models.Task{}, err
	}

	s.eventService.CreateEvent("task.assign", "info", fmt.Sprintf("Task '%s' was assigned to you.", task.Name), &task.ProjectID, &annotatorID)
	if task.AnnotatorID != nil && *task.AnnotatorID != annotatorID {
		s.eventService.CreateEvent("task.unassign", "warn", fmt.Sprintf("Task '%s' was reassigned.", task.Name), &task.ProjectID, task.AnnotatorID)
	}
	return s.GetTaskByID(taskID)
}

// SetReviewer sets who reviews a task. The reviewer cannot be the task's annotator.
func (s *TaskService) SetReviewer(taskID, reviewerID string) (models.Task, error) {
	task, err := s.GetTaskByID(taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.AssignedTo(reviewerID) {
		return models.Task{}, fmt.Errorf("an annotator cannot review their own task: %w", ErrInvalidInput)
	}
	if _, err := userRole(s.db, reviewerID); err != nil {
		return models.Task{}, err
	}
	if _, err := s.db.Exec("UPDATE tasks SET reviewer_id = ? WHERE id = ?", reviewerID, taskID); err != nil {
		return models.Task{}, err
	}
	s.eventService.CreateEvent("task.reviewer", "info", fmt.Sprintf("You were asked to review task '%s'.", task.Name), &task.ProjectID, &reviewerID)
	return s.GetTaskByID(taskID)
}

// SubmitTask records the annotator's response. Only the assigned annotator may submit, and only
// from the assigned or rejected status.
func (s *TaskService) SubmitTask(taskID, annotatorID string, response json.RawMessage, timeTakenSeconds int) (models.Task, error) {
	task, err := s.GetTaskByID(taskID)
	if err != nil {
		return models.Task{}, err
	}
	if !task.AssignedTo(annotatorID) {
		return models.Task{}, fmt.Errorf("task %s is not assigned to you: %w", taskID, ErrForbidden)
	}
	if !task.CanSubmit() {
		return models.Task{}, fmt.Errorf("cannot submit a %s task: %w", task.Status, ErrInvalidTransition)
	}
	if len(response) == 0 || !json.Valid(response) {
		return models.Task{}, fmt.Errorf("response must be a JSON document: %w", ErrInvalidInput)
	}
	if timeTakenSeconds < 0 {
		return models.Task{}, fmt.Errorf("time taken must not be negative: %w", ErrInvalidInput)
	}

	// The status guard in the WHERE clause keeps concurrent submissions from both succeeding.
	res, err := s.db.Exec("UPDATE tasks SET status = ?, response = ?, time_taken_seconds = ?, submitted_at = ? WHERE id = ? AND status = ?",
		models.TaskSubmitted, string(response), timeTakenSeconds, now(), taskID, task.Status)
	if err != nil {
		return models.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Task{}, fmt.Errorf("task %s changed while submitting: %w", taskID, ErrInvalidTransition)
	}

	if task.ReviewerID != nil {
		s.eventService.CreateEvent("task.submit", "info", fmt.Sprintf("Task '%s' is ready for review.", task.Name), &task.ProjectID, task.ReviewerID)
	} else {
		s.eventService.CreateEvent("task.submit", "info", fmt.Sprintf("Task '%s' was submitted.", task.Name), &task.ProjectID, nil)
	}
	return s.GetTaskByID(taskID)
}

// ReviewTask accepts or rejects a submitted task. Rejections must carry feedback.
// Callers are responsible for checking that reviewerID may review the task.
func (s *TaskService) ReviewTask(taskID, reviewerID string, accept bool, feedback string) (models.Task, error) {
	task, err := s.GetTaskByID(taskID)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status != models.TaskSubmitted {
		return models.Task{}, fmt.Errorf("cannot review a %s task: %w", task.Status, ErrInvalidTransition)
	}
	if task.AssignedTo(reviewerID) {
		return models.Task{}, fmt.Errorf("an annotator cannot review their own task: %w", ErrForbidden)
	}
	feedback = strings.TrimSpace(feedback)
	status := models.TaskAccepted
	if !accept {
		if feedback == "" {
			return models.Task{}, fmt.Errorf("feedback is required when rejecting: %w", ErrInvalidInput)
		}
		status = models.TaskRejected
	}

	res, err := s.db.Exec("UPDATE tasks SET status = ?, feedback = ?, reviewer_id = ?, reviewed_at = ? WHERE id = ? AND status = ?",
		status, feedback, reviewerID, now(), taskID, models.TaskSubmitted)
	if err != nil {
		return models.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Task{}, fmt.Errorf("task %s changed while reviewing: %w", taskID, ErrInvalidTransition)
	}

	if accept {
		s.eventService.CreateEvent("task.accept", "info", fmt.Sprintf("Task '%s' was accepted.", task.Name), &task.ProjectID, task.AnnotatorID)
	} else {
		s.eventService.CreateEvent("task.reject", "warn", fmt.Sprintf("Task '%s' was rejected: %s", task.Name, feedback), &task.ProjectID, task.AnnotatorID)
	}
	return s.GetTaskByID(taskID)
}

// DeleteTask removes a task.
func (s *TaskService) DeleteTask(id string) error {
	res, err := s.db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}
