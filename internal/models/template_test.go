package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Render(t *testing.T) {
	tmpl := Template{Content: json.RawMessage(`{"title":"{{ title }}","body":"Read: {{text}}","extra":"{{missing}}"}`)}

	out := tmpl.Render(map[string]string{
		"title": `Quote "A"`,
		"text":  "line1\nline2",
	})

	var doc map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	assert.Equal(t, `Quote "A"`, doc["title"])
	assert.Equal(t, "Read: line1\nline2", doc["body"])
	assert.Equal(t, "{{missing}}", doc["extra"])
}

func TestTemplate_Placeholders(t *testing.T) {
	tmpl := Template{Content: json.RawMessage(`{"a":"{{x}}","b":"{{ y }}","c":"{{x}}"}`)}
	assert.Equal(t, []string{"x", "y"}, tmpl.Placeholders())
}
