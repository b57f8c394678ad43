package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = models.User{ID: "u-1", Email: "pm@example.com", Role: models.RoleProjectManager}

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.GenerateJWT(testUser)
	require.NoError(t, err)

	claims, err := m.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleProjectManager, claims.Role)
	assert.True(t, claims.IsManager())
	assert.False(t, claims.IsOwner())
}

func TestValidateRejectsOtherSecretAndExpired(t *testing.T) {
	token, err := NewManager("secret", time.Hour).GenerateJWT(testUser)
	require.NoError(t, err)
	_, err = NewManager("other", time.Hour).ValidateJWT(token)
	assert.Error(t, err)

	m := NewManager("secret", time.Hour)
	m.ttl = -time.Minute
	expired, err := m.GenerateJWT(testUser)
	require.NoError(t, err)
	_, err = m.ValidateJWT(expired)
	require.Error(t, err)
	assert.True(t, IsExpired(err))
}

func TestMiddleware(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.GenerateJWT(testUser)
	require.NoError(t, err)

	var seen *Claims
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "u-1", seen.UserID)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleOwner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithClaims(req.Context(), &Claims{Role: models.RoleAnnotator})))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithClaims(req.Context(), &Claims{Role: models.RoleOwner})))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
