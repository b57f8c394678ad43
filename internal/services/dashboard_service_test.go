package services

import (
	"context"
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboards(t *testing.T) {
	env := newTestEnv(t)
	trainings := NewTrainingService(env.db, env.events)
	billing := NewBillingService(env.db, env.events)
	dashboards := NewDashboardService(env.db, env.events, trainings)
	today := time.Date(2026, 4, 20, 15, 0, 0, 0, time.UTC)
	dashboards.now = func() time.Time { return today }

	env.addUser(t, "pm", models.RoleProjectManager)
	env.addUser(t, "pm2", models.RoleProjectManager)
	env.addUser(t, "a1", models.RoleAnnotator)
	env.addUser(t, "a2", models.RoleAnnotator)
	p := env.addProject(t, "pm", 100)
	env.addProject(t, "pm2", 0)
	tmpl := env.addTemplate(t, p.ID)

	insert := func(id, status string, annotator interface{}, submitted interface{}, taken int) {
		env.exec(t, `INSERT INTO tasks (id, project_id, template_id, name, content, status, annotator_id, submitted_at, reviewed_at, time_taken_seconds, created_at)
			VALUES (?, ?, ?, ?, '{}', ?, ?, ?, ?, ?, ?)`, id, p.ID, tmpl.ID, id, status, annotator, submitted, submitted, taken, today)
	}
	insert("t1", models.TaskPending, nil, nil, 0)
	insert("t2", models.TaskAssigned, "a2", nil, 0)
	insert("t3", models.TaskSubmitted, "a1", today.Add(-time.Hour), 30)
	insert("t4", models.TaskAccepted, "a1", today.AddDate(0, 0, -1), 60)
	insert("t5", models.TaskRejected, "a2", today.AddDate(0, 0, -30), 90)

	ctx := context.Background()
	project, err := dashboards.GetProjectDashboard(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, project.TotalTasks)
	assert.Equal(t, 1, project.StatusCounts[models.TaskAccepted])
	assert.Equal(t, 1, project.StatusCounts[models.TaskPending])
	assert.InDelta(t, 20.0, project.CompletionPercent, 0.001)
	assert.InDelta(t, 60.0, project.AverageTimeSeconds, 0.001)

	require.Len(t, project.Annotators, 2)
	a1 := project.Annotators[0]
	assert.Equal(t, "a1", a1.UserID)
	assert.Equal(t, 2, a1.Assigned)
	assert.Equal(t, 2, a1.Submitted)
	assert.Equal(t, 1, a1.Accepted)
	assert.InDelta(t, 45.0, a1.AverageTimeSeconds, 0.001)

	require.Len(t, project.DailySubmissions, dailyWindow)
	assert.Equal(t, "2026-04-20", project.DailySubmissions[dailyWindow-1].Date)
	assert.Equal(t, 1, project.DailySubmissions[dailyWindow-1].Count)
	assert.Equal(t, 1, project.DailySubmissions[dailyWindow-2].Count)

	_, err = dashboards.GetProjectDashboard(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = billing.GenerateInvoices(p.ID, today.AddDate(0, 0, -7), today)
	require.NoError(t, err)

	overview, err := dashboards.GetOverview(ctx, "pm")
	require.NoError(t, err)
	assert.Equal(t, 1, overview.TotalProjects)
	assert.Equal(t, 1, overview.ActiveProjects)
	assert.Equal(t, 2, overview.TotalAnnotators)
	assert.Equal(t, int64(100), overview.PendingInvoiceCents)
	assert.NotEmpty(t, overview.RecentEvents)

	all, err := dashboards.GetOverview(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalProjects)
	assert.Equal(t, 5, sum(all.TaskStatusCounts))

	training, err := trainings.CreateTraining(models.Training{
		ProjectID: p.ID,
		Title:     "Guidelines",
		Webinars:  []models.Webinar{{Title: "Kickoff", ScheduledAt: today.Add(24 * time.Hour)}},
	})
	require.NoError(t, err)
	_, err = trainings.InviteAnnotators(training.ID, []string{"a1"})
	require.NoError(t, err)

	mine, err := dashboards.GetAnnotatorDashboard(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, mine.StatusCounts[models.TaskSubmitted])
	assert.Equal(t, int64(100), mine.PendingEarningsCents)
	assert.Zero(t, mine.EarningsCents)
	require.Len(t, mine.UpcomingWebinars, 1)
	assert.Equal(t, "Kickoff", mine.UpcomingWebinars[0].Webinar.Title)
}

func sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
