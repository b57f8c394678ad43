package models

import "time"

// Project statuses.
const (
	ProjectActive   = "active"
	ProjectArchived = "archived"
)

// Project groups templates, tasks and trainings under one manager.
type Project struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	ManagerID       string     `json:"managerId"`
	Status          string     `json:"status"`
	PayPerTaskCents int64      `json:"payPerTaskCents"`
	DueDate         *time.Time `json:"dueDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}
