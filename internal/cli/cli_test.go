package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/isdelr/annotation-hub-be/internal/database"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "hub.db")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
	return dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	dbPath := setupEnv(t)

	_, err := run(t, "migrate")
	require.NoError(t, err)

	db, err := database.New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count))
	assert.Zero(t, count)
}

func TestUserCreateCommand(t *testing.T) {
	dbPath := setupEnv(t)

	out, err := run(t, "user", "create", "--name", "Admin", "--email", "Admin@Example.com", "--password", "password123")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	db, err := database.New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	user, err := services.NewUserService(db).GetUserByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, user.Role)
	assert.Equal(t, "admin@example.com", user.Email)

	_, err = run(t, "user", "create", "--name", "Again", "--email", "admin@example.com", "--password", "password123")
	require.ErrorIs(t, err, services.ErrConflict)
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "user", "create", "--name", "X", "--email", "x@example.com", "--password", "password123", "--role", "admin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestUserCreateRequiresFlags(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "user", "create", "--name", "X")
	require.Error(t, err)
}
