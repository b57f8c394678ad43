package services

import (
	"testing"
	"time"

	"github.com/isdelr/annotation-hub-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvoices(t *testing.T) {
	env := newTestEnv(t)
	billing := NewBillingService(env.db, env.events)
	env.addUser(t, "pm", models.RoleProjectManager)
	env.addUser(t, "a1", models.RoleAnnotator)
	env.addUser(t, "a2", models.RoleAnnotator)
	p := env.addProject(t, "pm", 250)
	tmpl := env.addTemplate(t, p.ID)

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	insert := func(id, annotator, status string, reviewed time.Time) {
		env.exec(t, `INSERT INTO tasks (id, project_id, template_id, name, content, status, annotator_id, reviewed_at, created_at)
			VALUES (?, ?, ?, ?, '{}', ?, ?, ?, ?)`, id, p.ID, tmpl.ID, id, status, annotator, reviewed, start)
	}
	insert("t1", "a1", models.TaskAccepted, start.Add(time.Hour))
	insert("t2", "a1", models.TaskAccepted, start.Add(48*time.Hour))
	insert("t3", "a2", models.TaskAccepted, end.Add(-time.Minute))
	insert("t4", "a2", models.TaskRejected, start.Add(time.Hour))
	insert("t5", "a2", models.TaskAccepted, end)

	invoices, err := billing.GenerateInvoices(p.ID, start, end)
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	assert.Equal(t, "a1", invoices[0].AnnotatorID)
	assert.Equal(t, 2, invoices[0].TasksCount)
	assert.Equal(t, int64(500), invoices[0].AmountCents)
	assert.Equal(t, "a2", invoices[1].AnnotatorID)
	assert.Equal(t, 1, invoices[1].TasksCount)
	assert.Equal(t, models.InvoicePending, invoices[1].Status)

	task, err := env.tasks.GetTaskByID("t1")
	require.NoError(t, err)
	require.NotNil(t, task.InvoiceID)
	assert.Equal(t, invoices[0].ID, *task.InvoiceID)

	again, err := billing.GenerateInvoices(p.ID, start, end)
	require.NoError(t, err)
	assert.Empty(t, again)

	stored, err := billing.GetInvoicesForProject(p.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	mine, err := billing.GetInvoicesForAnnotator("a2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].PeriodStart.Equal(start))
}

func TestGenerateInvoicesValidation(t *testing.T) {
	env := newTestEnv(t)
	billing := NewBillingService(env.db, env.events)
	now := time.Now()

	_, err := billing.GenerateInvoices("missing", now.Add(-time.Hour), now)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = billing.GenerateInvoices("missing", now, now)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkInvoicePaid(t *testing.T) {
	env := newTestEnv(t)
	billing := NewBillingService(env.db, env.events)
	env.addUser(t, "pm", models.RoleProjectManager)
	env.addUser(t, "a1", models.RoleAnnotator)
	p := env.addProject(t, "pm", 100)
	tmpl := env.addTemplate(t, p.ID)
	reviewed := time.Now().UTC().Add(-time.Hour)
	env.exec(t, `INSERT INTO tasks (id, project_id, template_id, name, content, status, annotator_id, reviewed_at, created_at)
		VALUES ('t1', ?, ?, 't1', '{}', ?, 'a1', ?, ?)`, p.ID, tmpl.ID, models.TaskAccepted, reviewed, reviewed)

	invoices, err := billing.GenerateInvoices(p.ID, reviewed.Add(-time.Hour), reviewed.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	paid, err := billing.MarkInvoicePaid(invoices[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = billing.MarkInvoicePaid(invoices[0].ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = billing.MarkInvoicePaid("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, env.countEvents(t, "invoice.paid"))
}
