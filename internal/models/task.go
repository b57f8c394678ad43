package models

import (
	"encoding/json"
	"time"
)

// Task statuses.
const (
	TaskPending   = "pending"
	TaskAssigned  = "assigned"
	TaskSubmitted = "submitted"
	TaskAccepted  = "accepted"
	TaskRejected  = "rejected"
)

// TaskStatuses lists every status in lifecycle order.
var TaskStatuses = []string{TaskPending, TaskAssigned, TaskSubmitted, TaskAccepted, TaskRejected}

// Task is a single unit of annotation work rendered from a template.
type Task struct {
	ID               string          `json:"id"`
	ProjectID        string          `json:"projectId"`
	TemplateID       string          `json:"templateId"`
	Name             string          `json:"name"`
	Content          json.RawMessage `json:"content"`
	Status           string          `json:"status"`
	AnnotatorID      *string         `json:"annotatorId,omitempty"`
	ReviewerID       *string         `json:"reviewerId,omitempty"`
	Response         json.RawMessage `json:"response,omitempty"`
	Feedback         string          `json:"feedback,omitempty"`
	TimeTakenSeconds int             `json:"timeTakenSeconds"`
	TimerSeconds     int             `json:"timerSeconds"`
	InvoiceID        *string         `json:"invoiceId,omitempty"`
	AssignedAt       *time.Time      `json:"assignedAt,omitempty"`
	SubmittedAt      *time.Time      `json:"submittedAt,omitempty"`
	ReviewedAt       *time.Time      `json:"reviewedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// CanSubmit reports whether the task accepts a submission in its current status.
func (t Task) CanSubmit() bool {
	return t.Status == TaskAssigned || t.Status == TaskRejected
}

// AssignedTo reports whether userID is the task's annotator.
func (t Task) AssignedTo(userID string) bool {
	return t.AnnotatorID != nil && *t.AnnotatorID == userID
}

// ReviewedBy reports whether userID is the task's reviewer.
func (t Task) ReviewedBy(userID string) bool {
	return t.ReviewerID != nil && *t.ReviewerID == userID
}
