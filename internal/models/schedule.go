package models

import (
	"encoding/json"
	"time"
)

// Schedule task types.
const (
	ScheduleIngest  = "ingest"
	ScheduleInvoice = "invoice"
	ScheduleArchive = "archive"
)

// Schedule represents a recurring automated job for a project.
type Schedule struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"projectId"`
	Name           string          `json:"name"`
	CronExpression string          `json:"cronExpression"` // e.g., "0 4 * * *" for 4 AM daily
	TaskType       string          `json:"taskType"`       // ingest, invoice or archive
	PayloadJSON    string          `json:"-"`              // Stored as JSON object string
	Payload        json.RawMessage `json:"payload,omitempty"`
	IsActive       bool            `json:"isActive"`
	LastRunAt      *time.Time      `json:"lastRunAt"`
	NextRunAt      *time.Time      `json:"nextRunAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// IngestPayload is the payload of an ingest schedule.
type IngestPayload struct {
	TemplateID string `json:"templateId"`
	URL        string `json:"url"`
}

// PrepareForDB ensures the payload is correctly marshaled into its JSON string form before saving.
func (s *Schedule) PrepareForDB() {
	if s.Payload != nil {
		s.PayloadJSON = string(s.Payload)
	}
}

// PrepareForAPI ensures the JSON string payload is correctly unmarshaled for API responses.
func (s *Schedule) PrepareForAPI() {
	if s.PayloadJSON != "" {
		s.Payload = []byte(s.PayloadJSON)
	}
}

// ValidScheduleTask reports whether t is a known schedule task type.
func ValidScheduleTask(t string) bool {
	switch t {
	case ScheduleIngest, ScheduleInvoice, ScheduleArchive:
		return true
	}
	return false
}
