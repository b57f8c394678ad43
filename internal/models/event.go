package models

import "time"

// Event represents a loggable action or notification in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "task.submit", "project.create"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	ProjectID *string   `json:"projectId,omitempty"` // Nullable for system-wide events
	UserID    *string   `json:"userId,omitempty"`    // Set when the event concerns one user
	CreatedAt time.Time `json:"createdAt"`
}
