package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info"}, &buf)

	l.Info().Str("project_id", "p1").Msg("Project created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "p1", entry["project_id"])
	assert.Equal(t, "Project created", entry["message"])
	assert.Contains(t, entry, "caller")
}

func TestNew_AlsoWritesRotatingFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "hub.log")
	l := New(Options{FilePath: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}, &buf)

	l.Warn().Msg("Disk almost full")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Disk almost full")
	assert.Contains(t, buf.String(), "Disk almost full")
}
