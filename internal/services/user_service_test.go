package services

import (
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLifecycle(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.users.CreateUser(models.User{
		Name:      "Ada",
		Email:     " Ada@Example.com ",
		Role:      models.RoleAnnotator,
		Domain:    "medical",
		Languages: []string{"en", "fr"},
	}, "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	_, err = env.users.CreateUser(models.User{Name: "Copy", Email: "ADA@example.com", Role: models.RoleAnnotator}, "password123")
	assert.ErrorIs(t, err, ErrConflict)

	got, err := env.users.AuthenticateUser("ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, []string{"en", "fr"}, got.Languages)
	assert.Empty(t, got.PasswordHash)

	_, err = env.users.AuthenticateUser("ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, err = env.users.AuthenticateUser("nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	assert.ErrorIs(t, env.users.UpdatePassword(user.ID, "wrong-password", "newpassword"), ErrAuthenticationFailed)
	assert.ErrorIs(t, env.users.UpdatePassword(user.ID, "password123", "short"), ErrInvalidInput)
	require.NoError(t, env.users.UpdatePassword(user.ID, "password123", "newpassword"))
	_, err = env.users.AuthenticateUser("ada@example.com", "newpassword")
	require.NoError(t, err)

	updated, err := env.users.UpdateUser(user.ID, models.User{Name: "Ada L", Email: "ada@example.com", Location: "Paris"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", updated.Name)
	assert.Equal(t, "Paris", updated.Location)
	assert.Equal(t, models.RoleAnnotator, updated.Role)

	require.NoError(t, env.users.DeleteUser(user.ID))
	_, err = env.users.GetUserByID(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.users.DeleteUser(user.ID), ErrNotFound)
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.CreateUser(models.User{Name: "X", Email: "x@example.com", Role: "admin"}, "password123")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.users.CreateUser(models.User{Name: "X", Email: "x@example.com", Role: models.RoleAnnotator}, "short")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListUsersFilters(t *testing.T) {
	env := newTestEnv(t)

	env.addUser(t, "pm", models.RoleProjectManager)
	env.exec(t, `INSERT INTO users (id, name, email, password_hash, role, domain, languages_json, created_at)
		VALUES ('a1', 'A1', 'a1@example.com', 'x', ?, 'Medical imaging', '["en","de"]', ?),
		       ('a2', 'A2', 'a2@example.com', 'x', ?, 'legal', '["fr"]', ?)`,
		models.RoleAnnotator, time.Now().UTC(), models.RoleAnnotator, time.Now().UTC())

	all, err := env.users.ListUsers(UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	annotators, err := env.users.ListUsers(UserFilter{Role: models.RoleAnnotator})
	require.NoError(t, err)
	assert.Len(t, annotators, 2)

	medical, err := env.users.ListUsers(UserFilter{Domain: "medical"})
	require.NoError(t, err)
	require.Len(t, medical, 1)
	assert.Equal(t, "a1", medical[0].ID)

	french, err := env.users.ListUsers(UserFilter{Language: "fr"})
	require.NoError(t, err)
	require.Len(t, french, 1)
	assert.Equal(t, "a2", french[0].ID)
}
