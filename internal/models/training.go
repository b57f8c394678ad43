package models

import (
	"encoding/json"
	"time"
)

// Webinar is a scheduled live session inside a training.
type Webinar struct {
	ID              string    `json:"id"`
	Title           string    `json:"title" validate:"required"`
	URL             string    `json:"url" validate:"omitempty,url"`
	ScheduledAt     time.Time `json:"scheduledAt" validate:"required"`
	DurationMinutes int       `json:"durationMinutes" validate:"min=0"`
}

// Training bundles onboarding material and webinars for a project's annotators.
type Training struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Webinars     []Webinar `json:"webinars"`
	InvitedIDs   []string  `json:"invitedAnnotatorIds"`
	WebinarsJSON string    `json:"-"`
	InvitedJSON  string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PrepareForSave marshals the slice fields into their JSON strings for DB storage.
func (t *Training) PrepareForSave() {
	if t.Webinars == nil {
		t.Webinars = []Webinar{}
	}
	if t.InvitedIDs == nil {
		t.InvitedIDs = []string{}
	}
	webinars, _ := json.Marshal(t.Webinars)
	t.WebinarsJSON = string(webinars)
	invited, _ := json.Marshal(t.InvitedIDs)
	t.InvitedJSON = string(invited)
}

// PrepareForAPI unmarshals the JSON string fields for API responses.
func (t *Training) PrepareForAPI() {
	if t.WebinarsJSON != "" {
		json.Unmarshal([]byte(t.WebinarsJSON), &t.Webinars)
	}
	if t.InvitedJSON != "" {
		json.Unmarshal([]byte(t.InvitedJSON), &t.InvitedIDs)
	}
	if t.Webinars == nil {
		t.Webinars = []Webinar{}
	}
	if t.InvitedIDs == nil {
		t.InvitedIDs = []string{}
	}
}

// IsInvited reports whether the annotator was invited to the training.
func (t Training) IsInvited(userID string) bool {
	for _, id := range t.InvitedIDs {
		if id == userID {
			return true
		}
	}
	return false
}
