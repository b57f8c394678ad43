package services

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
)

// ProjectServiceProvider defines the interface for project services.
type ProjectServiceProvider interface {
	GetAllProjects() ([]models.Project, error)
	GetProjectsForManager(managerID string) ([]models.Project, error)
	GetProjectByID(id string) (models.Project, error)
	CreateProject(project models.Project) (models.Project, error)
	UpdateProject(id string, project models.Project) (models.Project, error)
	SetProjectStatus(id, status string) error
	IsMember(projectID, userID string) (bool, error)
	DeleteProject(id string) error
}

// ProjectService provides business logic for project management.
type ProjectService struct {
	db           *sql.DB
	eventService EventServiceProvider
}

// NewProjectService creates a new ProjectService.
func NewProjectService(db *sql.DB, eventService EventServiceProvider) *ProjectService {
	return &ProjectService{db: db, eventService: eventService}
}

const projectColumns = "id, name, description, manager_id, status, pay_per_task_cents, due_date, created_at"

func scanProject(scanner rowScanner) (models.Project, error) {
	var p models.Project
	var desc sql.NullString
	var due sql.NullTime
	if err := scanner.Scan(&p.ID, &p.Name, &desc, &p.ManagerID, &p.Status, &p.PayPerTaskCents, &due, &p.CreatedAt); err != nil {
		return models.Project{}, err
	}
	p.Description = desc.String
	p.DueDate = timePtr(due)
	return p, nil
}

func (s *ProjectService) list(query string, args ...interface{}) ([]models.Project, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetAllProjects retrieves every project, newest first.
func (s *ProjectService) GetAllProjects() ([]models.Project, error) {
	return s.list("SELECT " + projectColumns + " FROM projects ORDER BY created_at DESC")
}

// GetProjectsForManager retrieves the projects owned by a manager.
func (s *ProjectService) GetProjectsForManager(managerID string) ([]models.Project, error) {
	return s.list("SELECT "+projectColumns+" FROM projects WHERE manager_id = ? ORDER BY created_at DESC", managerID)
}

// GetProjectByID retrieves a single project by its ID.
func (s *ProjectService) GetProjectByID(id string) (models.Project, error) {
	p, err := scanProject(s.db.QueryRow("SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if err != nil {
		return models.Project{}, notFound(err, "project", id)
	}
	return p, nil
}

// CreateProject adds a new project to the database.
func (s *ProjectService) CreateProject(project models.Project) (models.Project, error) {
	if project.PayPerTaskCents < 0 {
		return models.Project{}, fmt.Errorf("pay per task must not be negative: %w", ErrInvalidInput)
	}
	project.ID = uuid.New().String()
	project.Status = models.ProjectActive
	project.CreatedAt = now()
	project.DueDate = utcPtr(project.DueDate)

	_, err := s.db.Exec("INSERT INTO projects("+projectColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?)",
		project.ID, project.Name, project.Description, project.ManagerID, project.Status,
		project.PayPerTaskCents, project.DueDate, project.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Project{}, fmt.Errorf("manager %s: %w", project.ManagerID, ErrNotFound)
		}
		return models.Project{}, fmt.Errorf("failed to create project: %w", err)
	}

	s.eventService.CreateEvent("project.create", "info", fmt.Sprintf("Project '%s' created.", project.Name), &project.ID, &project.ManagerID)
	return project, nil
}

// UpdateProject updates the editable fields of a project.
func (s *ProjectService) UpdateProject(id string, project models.Project) (models.Project, error) {
	if project.PayPerTaskCents < 0 {
		return models.Project{}, fmt.Errorf("pay per task must not be negative: %w", ErrInvalidInput)
	}
	project.DueDate = utcPtr(project.DueDate)
	res, err := s.db.Exec("UPDATE projects SET name = ?, description = ?, pay_per_task_cents = ?, due_date = ? WHERE id = ?",
		project.Name, project.Description, project.PayPerTaskCents, project.DueDate, id)
	if err != nil {
		return models.Project{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return s.GetProjectByID(id)
}

// SetProjectStatus archives or re-activates a project.
func (s *ProjectService) SetProjectStatus(id, status string) error {
	if status != models.ProjectActive && status != models.ProjectArchived {
		return fmt.Errorf("unknown project status %q: %w", status, ErrInvalidInput)
	}
	res, err := s.db.Exec("UPDATE projects SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	s.eventService.CreateEvent("project.status", "info", fmt.Sprintf("Project status set to %s.", status), &id, nil)
	return nil
}

// DeleteProject removes a project and, through cascading keys, everything inside it.
func (s *ProjectService) DeleteProject(id string) error {
	project, err := s.GetProjectByID(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM projects WHERE id = ?", id); err != nil {
		return err
	}
	s.eventService.CreateEvent("project.delete", "warn", fmt.Sprintf("Project '%s' was deleted.", project.Name), nil, &project.ManagerID)
	return nil
}

// IsMember reports whether the user manages the project or works on one of its tasks.
func (s *ProjectService) IsMember(projectID, userID string) (bool, error) {
	var member bool
	err := s.db.QueryRow(`
		SELECT EXISTS (SELECT 1 FROM projects WHERE id = ? AND manager_id = ?)
		    OR EXISTS (SELECT 1 FROM tasks WHERE project_id = ? AND (annotator_id = ? OR reviewer_id = ?))`,
		projectID, userID, projectID, userID, userID).Scan(&member)
	return member, err
}
