package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleValidation(t *testing.T) {
	env := newTestEnv(t)
	schedules := NewScheduleService(env.db, env.events)
	env.addUser(t, "pm", models.RoleProjectManager)
	p := env.addProject(t, "pm", 0)

	cases := map[string]models.Schedule{
		"missing name":    {ProjectID: p.ID, CronExpression: "0 * * * *", TaskType: models.ScheduleArchive},
		"bad cron":        {ProjectID: p.ID, Name: "x", CronExpression: "every hour", TaskType: models.ScheduleArchive},
		"unknown type":    {ProjectID: p.ID, Name: "x", CronExpression: "0 * * * *", TaskType: "backup"},
		"ingest no url":   {ProjectID: p.ID, Name: "x", CronExpression: "0 * * * *", TaskType: models.ScheduleIngest, Payload: json.RawMessage(`{"templateId":"t"}`)},
		"invalid payload": {ProjectID: p.ID, Name: "x", CronExpression: "0 * * * *", TaskType: models.ScheduleInvoice, Payload: json.RawMessage(`{`)},
	}
	for name, s := range cases {
		_, err := schedules.CreateSchedule(s)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}

	_, err := schedules.CreateSchedule(models.Schedule{ProjectID: "missing", Name: "x", CronExpression: "0 * * * *", TaskType: models.ScheduleArchive})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	schedules := NewScheduleService(env.db, env.events)
	env.addUser(t, "pm", models.RoleProjectManager)
	p := env.addProject(t, "pm", 0)

	created, err := schedules.CreateSchedule(models.Schedule{
		ProjectID:      p.ID,
		Name:           "Nightly import",
		CronExpression: "0 4 * * *",
		TaskType:       models.ScheduleIngest,
		Payload:        json.RawMessage(`{"templateId":"t1","url":"s3://bucket/daily.csv"}`),
		IsActive:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, created.NextRunAt)
	assert.Equal(t, 4, created.NextRunAt.Hour())
	assert.Nil(t, created.LastRunAt)
	assert.JSONEq(t, `{"templateId":"t1","url":"s3://bucket/daily.csv"}`, string(created.Payload))

	list, err := schedules.GetSchedulesForProject(p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	due, err := schedules.GetDueSchedules(created.NextRunAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)
	due, err = schedules.GetDueSchedules(*created.NextRunAt)
	require.NoError(t, err)
	require.Len(t, due, 1)

	lastRun := created.NextRunAt.Add(time.Second)
	nextRun := created.NextRunAt.Add(24 * time.Hour)
	require.NoError(t, schedules.UpdateScheduleRunTimes(created.ID, lastRun, nextRun))
	got, err := schedules.GetScheduleByID(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, got.LastRunAt.Equal(lastRun))
	assert.True(t, got.NextRunAt.Equal(nextRun))

	paused := got
	paused.IsActive = false
	paused.TaskType = models.ScheduleArchive
	paused.Payload = nil
	updated, err := schedules.UpdateSchedule(created.ID, paused)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	due, err = schedules.GetDueSchedules(nextRun.Add(48 * time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, schedules.DeleteSchedule(created.ID))
	assert.ErrorIs(t, schedules.DeleteSchedule(created.ID), ErrNotFound)
	assert.Equal(t, 1, env.countEvents(t, "schedule.delete"))
}
