package models

import "time"

// Ingest job statuses.
const (
	IngestQueued    = "queued"
	IngestRunning   = "running"
	IngestCompleted = "completed"
	IngestFailed    = "failed"
)

// IngestJob tracks the import of a CSV file into tasks.
type IngestJob struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"projectId"`
	TemplateID   string     `json:"templateId"`
	SourceURL    string     `json:"sourceUrl"`
	Status       string     `json:"status"`
	TasksCreated int        `json:"tasksCreated"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
}
