package models

import (
	"encoding/json"
	"time"
)

// Roles a user can hold.
const (
	RoleOwner          = "owner"
	RoleProjectManager = "project_manager"
	RoleAnnotator      = "annotator"
)

// User represents a user account in the system.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Never expose this to the client
	Role          string    `json:"role"`
	Domain        string    `json:"domain,omitempty"`
	Location      string    `json:"location,omitempty"`
	Languages     []string  `json:"languages,omitempty"`
	LanguagesJSON string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IsManager reports whether the user may manage projects.
func (u User) IsManager() bool {
	return u.Role == RoleOwner || u.Role == RoleProjectManager
}

// PrepareForSave marshals the languages slice for DB storage.
func (u *User) PrepareForSave() {
	b, _ := json.Marshal(u.Languages)
	u.LanguagesJSON = string(b)
}

// PrepareForAPI unmarshals the stored languages.
func (u *User) PrepareForAPI() {
	if u.LanguagesJSON != "" {
		json.Unmarshal([]byte(u.LanguagesJSON), &u.Languages)
	}
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleProjectManager, RoleAnnotator:
		return true
	}
	return false
}
