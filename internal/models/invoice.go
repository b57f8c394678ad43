package models

import "time"

// Invoice statuses.
const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"
)

// Invoice records what an annotator earned on a project over a period.
type Invoice struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	AnnotatorID string     `json:"annotatorId"`
	PeriodStart time.Time  `json:"periodStart"`
	PeriodEnd   time.Time  `json:"periodEnd"`
	TasksCount  int        `json:"tasksCount"`
	AmountCents int64      `json:"amountCents"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
