package services

import (
	"encoding/json"
	"testing"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "pm", models.RoleProjectManager)
	p := env.addProject(t, "pm", 0)

	cases := map[string]models.Template{
		"missing name":   {ProjectID: p.ID, Type: models.TemplateTest, Content: []byte(`{}`)},
		"unknown type":   {ProjectID: p.ID, Name: "X", Type: "survey", Content: []byte(`{}`)},
		"invalid json":   {ProjectID: p.ID, Name: "X", Type: models.TemplateTest, Content: []byte(`{`)},
		"negative timer": {ProjectID: p.ID, Name: "X", Type: models.TemplateTest, Content: []byte(`{}`), TimerSeconds: -5},
	}
	for name, tmpl := range cases {
		_, err := env.templates.CreateTemplate(tmpl)
		assert.ErrorIs(t, err, ErrInvalidInput, name)
	}

	_, err := env.templates.CreateTemplate(models.Template{ProjectID: "missing", Name: "X", Type: models.TemplateTest, Content: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "pm", models.RoleProjectManager)
	p := env.addProject(t, "pm", 0)
	tmpl := env.addTemplate(t, p.ID)

	updated, err := env.templates.UpdateTemplate(tmpl.ID, models.Template{
		Name: "Renamed", Type: models.TemplateTraining, Content: []byte(`{"a":1}`), Private: true, TimerSeconds: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, updated.Private)
	assert.Equal(t, 90, updated.TimerSeconds)
	assert.Equal(t, p.ID, updated.ProjectID)

	list, err := env.templates.GetTemplatesForProject(p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, env.templates.DeleteTemplate(tmpl.ID))
	assert.ErrorIs(t, env.templates.DeleteTemplate(tmpl.ID), ErrNotFound)
	_, err = env.templates.UpdateTemplate(tmpl.ID, updated)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateYAMLRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "pm", models.RoleProjectManager)
	source := env.addProject(t, "pm", 0)
	target := env.addProject(t, "pm", 0)

	original, err := env.templates.CreateTemplate(models.Template{
		ProjectID:    source.ID,
		Name:         "Boxes",
		Type:         models.TemplateTest,
		TimerSeconds: 30,
		Content:      []byte(`{"image":"{{url}}","labels":["cat","dog"]}`),
	})
	require.NoError(t, err)

	doc, err := env.templates.ExportTemplateYAML(original.ID)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "name: Boxes")

	imported, err := env.templates.ImportTemplateYAML(target.ID, doc)
	require.NoError(t, err)
	assert.Equal(t, target.ID, imported.ProjectID)
	assert.Equal(t, original.Name, imported.Name)
	assert.Equal(t, original.Type, imported.Type)
	assert.Equal(t, 30, imported.TimerSeconds)

	var want, got map[string]interface{}
	require.NoError(t, json.Unmarshal(original.Content, &want))
	require.NoError(t, json.Unmarshal(imported.Content, &got))
	assert.Equal(t, want, got)
}

func TestImportTemplateYAMLRejectsBadDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "pm", models.RoleProjectManager)
	p := env.addProject(t, "pm", 0)

	_, err := env.templates.ImportTemplateYAML(p.ID, []byte("name: [unclosed"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.templates.ImportTemplateYAML(p.ID, []byte("name: Empty\ntype: test\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
