package services

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"gopkg.in/yaml.v3"
)

// TemplateServiceProvider defines the interface for template services.
type TemplateServiceProvider interface {
	GetTemplatesForProject(projectID string) ([]models.Template, error)
	GetTemplateByID(id string) (models.Template, error)
	CreateTemplate(template models.Template) (models.Template, error)
	UpdateTemplate(id string, template models.Template) (models.Template, error)
	DeleteTemplate(id string) error
	ImportTemplateYAML(projectID string, data []byte) (models.Template, error)
	ExportTemplateYAML(id string) ([]byte, error)
}

// TemplateService provides business logic for template management.
type TemplateService struct {
	db *sql.DB
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(db *sql.DB) *TemplateService {
	return &TemplateService{db: db}
}

// templateDocument is the YAML shape used to move templates between projects.
type templateDocument struct {
	Name         string      `yaml:"name"`
	Type         string      `yaml:"type"`
	Private      bool        `yaml:"private,omitempty"`
	TimerSeconds int         `yaml:"timerSeconds,omitempty"`
	Content      interface{} `yaml:"content"`
}

const templateColumns = "id, project_id, name, type, content, private, timer_seconds, created_at"

// scanTemplate is a helper to scan a template from a row or rows object.
func scanTemplate(scanner rowScanner) (models.Template, error) {
	var tmpl models.Template
	var content string
	err := scanner.Scan(&tmpl.ID, &tmpl.ProjectID, &tmpl.Name, &tmpl.Type, &content,
		&tmpl.Private, &tmpl.TimerSeconds, &tmpl.CreatedAt)
	if err != nil {
		return tmpl, err
	}
	tmpl.Content = json.RawMessage(content)
	return tmpl, nil
}

func validateTemplate(t models.Template) error {
	if t.Name == "" {
		return fmt.Errorf("template name is required: %w", ErrInvalidInput)
	}
	if !models.ValidTemplateType(t.Type) {
		return fmt.Errorf("unknown template type %q: %w", t.Type, ErrInvalidInput)
	}
	if len(t.Content) == 0 || !json.Valid(t.Content) {
		return fmt.Errorf("template content must be a JSON document: %w", ErrInvalidInput)
	}
	if t.TimerSeconds < 0 {
		return fmt.Errorf("timer must not be negative: %w", ErrInvalidInput)
	}
	return nil
}

// GetTemplatesForProject retrieves all templates of a project.
func (s *TemplateService) GetTemplatesForProject(projectID string) ([]models.Template, error) {
	rows, err := s.db.Query("SELECT "+templateColumns+" FROM templates WHERE project_id = ? ORDER BY created_at DESC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []models.Template{}
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}
	return templates, rows.Err()
}

// GetTemplateByID retrieves a single template by its ID.
func (s *TemplateService) GetTemplateByID(id string) (models.Template, error) {
	tmpl, err := scanTemplate(s.db.QueryRow("SELECT "+templateColumns+" FROM templates WHERE id = ?", id))
	if err != nil {
		return models.Template{}, notFound(err, "template", id)
	}
	return tmpl, nil
}

// CreateTemplate adds a new template to the database.
func (s *TemplateService) CreateTemplate(template models.Template) (models.Template, error) {
	if err := validateTemplate(template); err != nil {
		return models.Template{}, err
	}
	template.ID = uuid.New().String()
	template.CreatedAt = now()

	_, err := s.db.Exec("INSERT INTO templates("+templateColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?)",
		template.ID, template.ProjectID, template.Name, template.Type, string(template.Content),
		template.Private, template.TimerSeconds, template.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Template{}, fmt.Errorf("project %s: %w", template.ProjectID, ErrNotFound)
		}
		return models.Template{}, fmt.Errorf("failed to execute statement: %w", err)
	}
	return template, nil
}

// UpdateTemplate updates an existing template in the database.
// Tasks already rendered from the template keep their content.
func (s *TemplateService) UpdateTemplate(id string, template models.Template) (models.Template, error) {
	if err := validateTemplate(template); err != nil {
		return models.Template{}, err
	}
	res, err := s.db.Exec("UPDATE templates SET name = ?, type = ?, content = ?, private = ?, timer_seconds = ? WHERE id = ?",
		template.Name, template.Type, string(template.Content), template.Private, template.TimerSeconds, id)
	if err != nil {
		return models.Template{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Template{}, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return s.GetTemplateByID(id)
}

// DeleteTemplate removes a template and the tasks rendered from it.
func (s *TemplateService) DeleteTemplate(id string) error {
	res, err := s.db.Exec("DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	return nil
}

// ImportTemplateYAML creates a template in the project from a YAML document.
func (s *TemplateService) ImportTemplateYAML(projectID string, data []byte) (models.Template, error) {
	var doc templateDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.Template{}, fmt.Errorf("invalid template YAML: %v: %w", err, ErrInvalidInput)
	}
	if doc.Content == nil {
		return models.Template{}, fmt.Errorf("template YAML has no content: %w", ErrInvalidInput)
	}
	content, err := json.Marshal(doc.Content)
	if err != nil {
		return models.Template{}, fmt.Errorf("template content is not representable as JSON: %v: %w", err, ErrInvalidInput)
	}
	return s.CreateTemplate(models.Template{
		ProjectID:    projectID,
		Name:         doc.Name,
		Type:         doc.Type,
		Private:      doc.Private,
		TimerSeconds: doc.TimerSeconds,
		Content:      content,
	})
}

// ExportTemplateYAML renders a template as a YAML document accepted by ImportTemplateYAML.
func (s *TemplateService) ExportTemplateYAML(id string) ([]byte, error) {
	tmpl, err := s.GetTemplateByID(id)
	if err != nil {
		return nil, err
	}
	var content interface{}
	if err := json.Unmarshal(tmpl.Content, &content); err != nil {
		return nil, fmt.Errorf("stored template content is corrupt: %w", err)
	}
	return yaml.Marshal(templateDocument{
		Name:         tmpl.Name,
		Type:         tmpl.Type,
		Private:      tmpl.Private,
		TimerSeconds: tmpl.TimerSeconds,
		Content:      content,
	})
}
