package services

import (
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobPostsAndApplications(t *testing.T) {
	env := newTestEnv(t)
	jobs := NewJobService(env.db, env.events)
	env.addUser(t, "pm", models.RoleProjectManager)
	env.addUser(t, "ann", models.RoleAnnotator)

	draft, err := jobs.CreateJobPost(models.JobPost{AuthorID: "pm", Title: "Radiologists", Skills: []string{"radiology"}})
	require.NoError(t, err)
	assert.Equal(t, models.JobDraft, draft.Status)

	_, err = jobs.CreateJobPost(models.JobPost{AuthorID: "pm", Title: "Bad", Status: "open"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = jobs.Apply(draft.ID, "ann", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	published, err := jobs.UpdateJobPost(draft.ID, models.JobPost{Title: "Radiologists", Skills: []string{"radiology", "dicom"}, Status: models.JobPublished})
	require.NoError(t, err)
	assert.Equal(t, []string{"radiology", "dicom"}, published.Skills)

	list, err := jobs.GetPublishedJobPosts()
	require.NoError(t, err)
	require.Len(t, list, 1)

	app, err := jobs.Apply(draft.ID, "ann", "I read scans all day")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApplied, app.Status)
	_, err = jobs.Apply(draft.ID, "ann", "again")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, env.countEvents(t, "job.apply"))

	apps, err := jobs.GetApplicationsForJob(draft.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "I read scans all day", apps[0].CoverLetter)

	_, err = jobs.UpdateApplicationStatus(app.ID, "maybe")
	assert.ErrorIs(t, err, ErrInvalidInput)
	hired, err := jobs.UpdateApplicationStatus(app.ID, models.ApplicationHired)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationHired, hired.Status)

	require.NoError(t, jobs.DeleteJobPost(draft.ID))
	_, err = jobs.GetApplicationByID(app.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, jobs.DeleteJobPost(draft.ID), ErrNotFound)
}

func TestExpireJobPosts(t *testing.T) {
	env := newTestEnv(t)
	jobs := NewJobService(env.db, env.events)
	env.addUser(t, "pm", models.RoleProjectManager)

	at := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	past := at.Add(-time.Hour)
	future := at.Add(time.Hour)
	expired, err := jobs.CreateJobPost(models.JobPost{AuthorID: "pm", Title: "Old", Status: models.JobPublished, ExpiresAt: &past})
	require.NoError(t, err)
	_, err = jobs.CreateJobPost(models.JobPost{AuthorID: "pm", Title: "Fresh", Status: models.JobPublished, ExpiresAt: &future})
	require.NoError(t, err)
	_, err = jobs.CreateJobPost(models.JobPost{AuthorID: "pm", Title: "Draft", ExpiresAt: &past})
	require.NoError(t, err)

	n, err := jobs.ExpireJobPosts(at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := jobs.GetJobPostByID(expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobClosed, got.Status)

	mine, err := jobs.GetJobPostsForAuthor("pm")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestExpireJobPostsWithOffsets(t *testing.T) {
	env := newTestEnv(t)
	jobs := NewJobService(env.db, env.events)
	env.addUser(t, "pm", models.RoleProjectManager)

	east := time.FixedZone("UTC+5", 5*60*60)
	west := time.FixedZone("UTC-5", -5*60*60)
	// 05:00 UTC and 08:00 UTC.
	passed := time.Date(2026, 10, 18, 10, 0, 0, 0, east)
	pending := time.Date(2026, 10, 18, 3, 0, 0, 0, west)
	at := time.Date(2026, 10, 18, 6, 30, 0, 0, time.UTC)

	closing, err := jobs.CreateJobPost(models.JobPost{AuthorID: "pm", Title: "East", Status: models.JobPublished, ExpiresAt: &passed})
	require.NoError(t, err)
	require.NotNil(t, closing.ExpiresAt)
	assert.Equal(t, time.UTC, closing.ExpiresAt.Location())
	open, err := jobs.CreateJobPost(models.JobPost{AuthorID: "pm", Title: "West", Status: models.JobPublished})
	require.NoError(t, err)
	open.ExpiresAt = &pending
	_, err = jobs.UpdateJobPost(open.ID, open)
	require.NoError(t, err)

	n, err := jobs.ExpireJobPosts(at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := jobs.GetJobPostByID(closing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobClosed, got.Status)
	got, err = jobs.GetJobPostByID(open.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPublished, got.Status)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(pending))
}
