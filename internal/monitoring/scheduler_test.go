package monitoring

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/database"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, jobID)
	return nil
}

type fixture struct {
	db         *sql.DB
	scheduler  *Scheduler
	dispatcher *recordingDispatcher
	events     *services.EventService
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "hub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	events := services.NewEventService(db, nil)
	templates := services.NewTemplateService(db)
	tasks := services.NewTaskService(db, templates, events)
	dispatcher := &recordingDispatcher{}
	s, err := NewScheduler(Dependencies{
		Schedules:  services.NewScheduleService(db, events),
		Ingest:     services.NewIngestService(db, nil, tasks, events),
		Billing:    services.NewBillingService(db, events),
		Projects:   services.NewProjectService(db, events),
		Jobs:       services.NewJobService(db, events),
		Events:     events,
		Dispatcher: dispatcher,
	})
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return &fixture{db: db, scheduler: s, dispatcher: dispatcher, events: events, now: now}
}

func (f *fixture) exec(t *testing.T, query string, args ...interface{}) {
	t.Helper()
	_, err := f.db.Exec(query, args...)
	require.NoError(t, err)
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	created := f.now.Add(-48 * time.Hour)
	f.exec(t, `INSERT INTO users (id, name, email, password_hash, role, created_at) VALUES
		('pm', 'PM', 'pm@example.com', 'x', ?, ?), ('ann', 'Ann', 'ann@example.com', 'x', ?, ?)`,
		models.RoleProjectManager, created, models.RoleAnnotator, created)
	f.exec(t, `INSERT INTO projects (id, name, manager_id, status, pay_per_task_cents, created_at) VALUES
		('p1', 'Billing', 'pm', 'active', 150, ?), ('p2', 'Old', 'pm', 'active', 0, ?)`, created, created)
	f.exec(t, `INSERT INTO templates (id, project_id, name, type, content, created_at) VALUES ('t1', 'p1', 'Main', 'production', '{}', ?)`, created)
	f.exec(t, `INSERT INTO tasks (id, project_id, template_id, name, content, status, annotator_id, reviewed_at, created_at)
		VALUES ('task1', 'p1', 't1', 'Row 1', '{}', ?, 'ann', ?, ?)`, models.TaskAccepted, f.now.Add(-time.Hour), created)
}

func (f *fixture) addSchedule(t *testing.T, id, projectID, taskType, payload string) {
	t.Helper()
	created := f.now.Add(-24 * time.Hour)
	f.exec(t, `INSERT INTO schedules (id, project_id, name, cron_expression, task_type, payload_json, is_active, next_run_at, created_at)
		VALUES (?, ?, ?, '0 * * * *', ?, ?, 1, ?, ?)`, id, projectID, id, taskType, payload, f.now.Add(-time.Minute), created)
}

func (f *fixture) countEvents(t *testing.T, eventType string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM events WHERE type = ?", eventType).Scan(&n))
	return n
}

func TestRunDueSchedules(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.addSchedule(t, "bill", "p1", models.ScheduleInvoice, "")
	f.addSchedule(t, "archive", "p2", models.ScheduleArchive, "")
	f.addSchedule(t, "ingest", "p1", models.ScheduleIngest, `{"templateId":"t1","url":"https://example.com/data.csv"}`)

	f.scheduler.RunDueSchedules()

	var amount int64
	var annotator string
	require.NoError(t, f.db.QueryRow("SELECT annotator_id, amount_cents FROM invoices WHERE project_id = 'p1'").Scan(&annotator, &amount))
	assert.Equal(t, "ann", annotator)
	assert.Equal(t, int64(150), amount)

	var status string
	require.NoError(t, f.db.QueryRow("SELECT status FROM projects WHERE id = 'p2'").Scan(&status))
	assert.Equal(t, models.ProjectArchived, status)

	require.Len(t, f.dispatcher.jobs, 1)
	require.NoError(t, f.db.QueryRow("SELECT status FROM ingest_jobs WHERE id = ?", f.dispatcher.jobs[0]).Scan(&status))
	assert.Equal(t, models.IngestQueued, status)

	assert.Equal(t, 3, f.countEvents(t, "schedule.execute.success"))

	due, err := services.NewScheduleService(f.db, f.events).GetDueSchedules(f.now)
	require.NoError(t, err)
	assert.Empty(t, due, "run times should be moved past now")

	schedule, err := services.NewScheduleService(f.db, f.events).GetScheduleByID("bill")
	require.NoError(t, err)
	require.NotNil(t, schedule.LastRunAt)
	require.NotNil(t, schedule.NextRunAt)
	assert.True(t, schedule.LastRunAt.Equal(f.now))
	assert.True(t, schedule.NextRunAt.Equal(time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)))
}

func TestRunDueSchedules_RecordsFailures(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.addSchedule(t, "broken", "p1", models.ScheduleIngest, `{"templateId":"missing","url":"https://example.com/data.csv"}`)

	f.scheduler.RunDueSchedules()

	assert.Empty(t, f.dispatcher.jobs)
	assert.Equal(t, 1, f.countEvents(t, "schedule.execute.fail"))
	assert.Equal(t, 0, f.countEvents(t, "schedule.execute.success"))
}

func TestRunDueSchedules_SecondInvoiceRunBillsNothing(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.addSchedule(t, "bill", "p1", models.ScheduleInvoice, "")
	f.scheduler.RunDueSchedules()

	f.exec(t, "UPDATE schedules SET next_run_at = ? WHERE id = 'bill'", f.now.Add(-time.Minute))
	later := f.now.Add(time.Hour)
	f.scheduler.now = func() time.Time { return later }
	f.scheduler.RunDueSchedules()

	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM invoices").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestExpireJobPosts(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.exec(t, `INSERT INTO job_posts (id, author_id, title, status, expires_at, created_at) VALUES
		('old', 'pm', 'Old', ?, ?, ?), ('fresh', 'pm', 'Fresh', ?, ?, ?)`,
		models.JobPublished, f.now.Add(-time.Hour), f.now.Add(-72*time.Hour),
		models.JobPublished, f.now.Add(time.Hour), f.now.Add(-72*time.Hour))

	f.scheduler.ExpireJobPosts()

	statuses := map[string]string{}
	rows, err := f.db.Query("SELECT id, status FROM job_posts")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id, status string
		require.NoError(t, rows.Scan(&id, &status))
		statuses[id] = status
	}
	assert.Equal(t, map[string]string{"old": models.JobClosed, "fresh": models.JobPublished}, statuses)
}

func TestSchedulerStartStop(t *testing.T) {
	f := newFixture(t)
	f.scheduler.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.scheduler.Stop(ctx)
}
