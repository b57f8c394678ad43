package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/auth"
	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service      services.UserServiceProvider
	tokens       *auth.Manager
	secureCookie bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, tokens *auth.Manager, secureCookie bool) *UserHandler {
	return &UserHandler{service: service, tokens: tokens, secureCookie: secureCookie}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8,max=128"`
	Role      string   `json:"role" validate:"required,oneof=project_manager annotator"`
	Domain    string   `json:"domain" validate:"max=120"`
	Languages []string `json:"languages" validate:"max=20,dive,min=2,max=35"`
	Location  string   `json:"location" validate:"max=120"`
}

// ProfilePayload defines the editable profile fields.
type ProfilePayload struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Email     string   `json:"email" validate:"required,email"`
	Domain    string   `json:"domain" validate:"max=120"`
	Languages []string `json:"languages" validate:"max=20,dive,min=2,max=35"`
	Location  string   `json:"location" validate:"max=120"`
}

// PasswordPayload defines the structure for password changes.
type PasswordPayload struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// Register handles new user registration. Owner accounts are created from the CLI.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.CreateUser(models.User{
		Name:      payload.Name,
		Email:     payload.Email,
		Role:      payload.Role,
		Domain:    payload.Domain,
		Languages: payload.Languages,
		Location:  payload.Location,
	}, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		respondError(w, err, "register user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.AuthenticateUser(payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.tokens.GenerateJWT(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	h.tokens.SetTokenCookie(w, token, h.secureCookie)

	user.PasswordHash = ""
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Logout clears the session cookie.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, h.secureCookie)
	w.WriteHeader(http.StatusNoContent)
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUserByID(claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("User from token not found in DB")
		respondError(w, err, "load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe updates the caller's profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	var payload ProfilePayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateUser(claims.UserID, models.User{
		Name:      payload.Name,
		Email:     payload.Email,
		Domain:    payload.Domain,
		Languages: payload.Languages,
		Location:  payload.Location,
	})
	if err != nil {
		respondError(w, err, "update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword handles changing the caller's password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	var payload PasswordPayload
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.service.UpdatePassword(claims.UserID, payload.CurrentPassword, payload.NewPassword); err != nil {
		log.Warn().Err(err).Str("user_id", claims.UserID).Msg("Failed to change password")
		respondError(w, err, "change password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// List returns users, filtered by role, domain and language.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.UserFilter{Role: q.Get("role"), Domain: q.Get("domain"), Language: q.Get("language")}
	if filter.Role != "" && !models.ValidRole(filter.Role) {
		http.Error(w, "Unknown role", http.StatusBadRequest)
		return
	}
	users, err := h.service.ListUsers(filter)
	if err != nil {
		respondError(w, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get handles retrieving a user by their ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if !claims.IsManager() && id != claims.UserID {
		respondError(w, fmt.Errorf("user %s: %w", id, services.ErrForbidden), "load user")
		return
	}
	user, err := h.service.GetUserByID(id)
	if err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to get user by ID")
		respondError(w, err, "load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles the permanent deletion of a user account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if id == claims.UserID {
		http.Error(w, "Owners cannot delete their own account", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteUser(id); err != nil {
		log.Error().Err(err).Str("user_id", id).Msg("Failed to delete user")
		respondError(w, err, "delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
