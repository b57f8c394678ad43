package services

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/database"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	channels []string
}

func (n *recordingNotifier) Notify(channel string, _ []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, channel)
}

func (n *recordingNotifier) Channels() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.channels...)
}

type testEnv struct {
	db        *sql.DB
	events    *EventService
	users     *UserService
	projects  *ProjectService
	templates *TemplateService
	tasks     *TaskService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	events := NewEventService(db, nil)
	templates := NewTemplateService(db)
	return &testEnv{
		db:        db,
		events:    events,
		users:     NewUserService(db),
		projects:  NewProjectService(db, events),
		templates: templates,
		tasks:     NewTaskService(db, templates, events),
	}
}

func (e *testEnv) exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	_, err := e.db.Exec(query, args...)
	require.NoError(t, err)
}

// addUser inserts a user without hashing a password.
func (e *testEnv) addUser(t *testing.T, id, role string) {
	t.Helper()
	e.exec(t, "INSERT INTO users (id, name, email, password_hash, role, created_at) VALUES (?, ?, ?, 'x', ?, ?)",
		id, "User "+id, id+"@example.com", role, time.Now().UTC())
}

func (e *testEnv) addProject(t *testing.T, managerID string, rate int64) models.Project {
	t.Helper()
	p, err := e.projects.CreateProject(models.Project{Name: "Project of " + managerID, ManagerID: managerID, PayPerTaskCents: rate})
	require.NoError(t, err)
	return p
}

func (e *testEnv) addTemplate(t *testing.T, projectID string) models.Template {
	t.Helper()
	tmpl, err := e.templates.CreateTemplate(models.Template{
		ProjectID: projectID,
		Name:      "Sentiment",
		Type:      models.TemplateProduction,
		Content:   []byte(`{"question":"What is the sentiment of {{text}}?"}`),
	})
	require.NoError(t, err)
	return tmpl
}

func (e *testEnv) addTasks(t *testing.T, projectID, templateID string, n int) []models.Task {
	t.Helper()
	rows := make([]map[string]string, n)
	for i := range rows {
		rows[i] = map[string]string{"text": "row " + string(rune('a'+i))}
	}
	tasks, err := e.tasks.CreateTasks(projectID, templateID, rows)
	require.NoError(t, err)
	return tasks
}

func (e *testEnv) countEvents(t *testing.T, eventType string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM events WHERE type = ?", eventType).Scan(&n))
	return n
}
