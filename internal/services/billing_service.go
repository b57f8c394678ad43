package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/annotation-hub-be/internal/models"
)

// BillingServiceProvider defines the interface for invoice services.
type BillingServiceProvider interface {
	GenerateInvoices(projectID string, start, end time.Time) ([]models.Invoice, error)
	GetInvoicesForProject(projectID string) ([]models.Invoice, error)
	GetInvoicesForAnnotator(annotatorID string) ([]models.Invoice, error)
	GetInvoiceByID(id string) (models.Invoice, error)
	MarkInvoicePaid(id string) (models.Invoice, error)
}

// BillingService provides business logic for invoicing accepted work.
type BillingService struct {
	db           *sql.DB
	eventService EventServiceProvider
}

// NewBillingService creates a new BillingService.
func NewBillingService(db *sql.DB, eventService EventServiceProvider) *BillingService {
	return &BillingService{db: db, eventService: eventService}
}

const invoiceColumns = "id, project_id, annotator_id, period_start, period_end, tasks_count, amount_cents, status, paid_at, created_at"

func scanInvoice(scanner rowScanner) (models.Invoice, error) {
	var inv models.Invoice
	var paid sql.NullTime
	err := scanner.Scan(&inv.ID, &inv.ProjectID, &inv.AnnotatorID, &inv.PeriodStart, &inv.PeriodEnd,
		&inv.TasksCount, &inv.AmountCents, &inv.Status, &paid, &inv.CreatedAt)
	if err != nil {
		return models.Invoice{}, err
	}
	inv.PeriodStart = inv.PeriodStart.UTC()
	inv.PeriodEnd = inv.PeriodEnd.UTC()
	inv.PaidAt = timePtr(paid)
	return inv, nil
}

func (s *BillingService) list(query string, args ...interface{}) ([]models.Invoice, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// GenerateInvoices bills every accepted, not yet invoiced task reviewed in [start, end),
// one pending invoice per annotator. Tasks are stamped with their invoice so a second run
// over the same period creates nothing.
func (s *BillingService) GenerateInvoices(projectID string, start, end time.Time) ([]models.Invoice, error) {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return nil, fmt.Errorf("period start must be before its end: %w", ErrInvalidInput)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var rate int64
	if err := tx.QueryRow("SELECT pay_per_task_cents FROM projects WHERE id = ?", projectID).Scan(&rate); err != nil {
		return nil, notFound(err, "project", projectID)
	}

	rows, err := tx.Query(`
		SELECT annotator_id, COUNT(*) FROM tasks
		WHERE project_id = ? AND status = ? AND invoice_id IS NULL AND annotator_id IS NOT NULL
		  AND reviewed_at >= ? AND reviewed_at < ?
		GROUP BY annotator_id ORDER BY annotator_id`,
		projectID, models.TaskAccepted, start, end)
	if err != nil {
		return nil, err
	}
	type group struct {
		annotatorID string
		count       int
	}
	var groups []group
	for rows.Next() {
		var g group
		if err := rows.Scan(&g.annotatorID, &g.count); err != nil {
			rows.Close()
			return nil, err
		}
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	invoices := make([]models.Invoice, 0, len(groups))
	createdAt := now()
	for _, g := range groups {
		inv := models.Invoice{
			ID:          uuid.New().String(),
			ProjectID:   projectID,
			AnnotatorID: g.annotatorID,
			PeriodStart: start,
			PeriodEnd:   end,
			TasksCount:  g.count,
			AmountCents: int64(g.count) * rate,
			Status:      models.InvoicePending,
			CreatedAt:   createdAt,
		}
		_, err := tx.Exec("INSERT INTO invoices ("+invoiceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			inv.ID, inv.ProjectID, inv.AnnotatorID, inv.PeriodStart, inv.PeriodEnd, inv.TasksCount,
			inv.AmountCents, inv.Status, nil, inv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to insert invoice: %w", err)
		}
		_, err = tx.Exec(`UPDATE tasks SET invoice_id = ?
			WHERE project_id = ? AND annotator_id = ? AND status = ? AND invoice_id IS NULL
			  AND reviewed_at >= ? AND reviewed_at < ?`,
			inv.ID, projectID, g.annotatorID, models.TaskAccepted, start, end)
		if err != nil {
			return nil, fmt.Errorf("failed to stamp tasks: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, inv := range invoices {
		annotatorID := inv.AnnotatorID
		s.eventService.CreateEvent("invoice.create", "info",
			fmt.Sprintf("Invoice for %d tasks (%d cents) was issued.", inv.TasksCount, inv.AmountCents), &inv.ProjectID, &annotatorID)
	}
	return invoices, nil
}

// GetInvoicesForProject lists a project's invoices, newest first.
func (s *BillingService) GetInvoicesForProject(projectID string) ([]models.Invoice, error) {
	return s.list("SELECT "+invoiceColumns+" FROM invoices WHERE project_id = ? ORDER BY created_at DESC", projectID)
}

// GetInvoicesForAnnotator lists an annotator's invoices across projects, newest first.
func (s *BillingService) GetInvoicesForAnnotator(annotatorID string) ([]models.Invoice, error) {
	return s.list("SELECT "+invoiceColumns+" FROM invoices WHERE annotator_id = ? ORDER BY created_at DESC", annotatorID)
}

// GetInvoiceByID retrieves a single invoice.
func (s *BillingService) GetInvoiceByID(id string) (models.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRow("SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id))
	if err != nil {
		return models.Invoice{}, notFound(err, "invoice", id)
	}
	return inv, nil
}

// MarkInvoicePaid records the payment of a pending invoice.
func (s *BillingService) MarkInvoicePaid(id string) (models.Invoice, error) {
	inv, err := s.GetInvoiceByID(id)
	if err != nil {
		return models.Invoice{}, err
	}
	res, err := s.db.Exec("UPDATE invoices SET status = ?, paid_at = ? WHERE id = ? AND status = ?",
		models.InvoicePaid, now(), id, models.InvoicePending)
	if err != nil {
		return models.Invoice{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Invoice{}, fmt.Errorf("invoice %s is already %s: %w", id, inv.Status, ErrInvalidTransition)
	}
	s.eventService.CreateEvent("invoice.paid", "info",
		fmt.Sprintf("Invoice of %d cents was paid.", inv.AmountCents), &inv.ProjectID, &inv.AnnotatorID)
	return s.GetInvoiceByID(id)
}
