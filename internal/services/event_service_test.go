package services

import (
	"testing"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsArePublishedToChannels(t *testing.T) {
	env := newTestEnv(t)
	notifier := &recordingNotifier{}
	events := NewEventService(env.db, notifier)

	project, user := "p1", "u1"
	require.NoError(t, events.CreateEvent("task.assign", "info", "assigned", &project, &user))
	require.NoError(t, events.CreateEvent("system.alert.cpu", "warn", "hot", nil, nil))

	assert.Equal(t, []string{UserChannel(user), ProjectChannel(project)}, notifier.Channels())

	recent, err := events.GetRecentEvents(10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	mine, err := events.GetEventsForUser(user, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "task.assign", mine[0].Type)
	require.NotNil(t, mine[0].ProjectID)
	assert.Equal(t, project, *mine[0].ProjectID)

	limited, err := events.GetRecentEvents(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEventsForManager(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "pm", models.RoleProjectManager)
	env.addUser(t, "pm2", models.RoleProjectManager)
	own := env.addProject(t, "pm", 0)
	other := env.addProject(t, "pm2", 0)

	require.NoError(t, env.events.CreateEvent("task.submit", "info", "own project", &own.ID, nil))
	require.NoError(t, env.events.CreateEvent("task.submit", "info", "other project", &other.ID, nil))

	events, err := env.events.GetEventsForManager("pm", 50)
	require.NoError(t, err)
	for _, e := range events {
		assert.NotEqual(t, "other project", e.Message)
	}
	// project.create for the own project plus the own task.submit
	assert.Len(t, events, 2)

	forProject, err := env.events.GetEventsForProject(other.ID, 50)
	require.NoError(t, err)
	assert.Len(t, forProject, 2)
}
