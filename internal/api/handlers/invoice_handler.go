package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/services"
	"github.com/rs/zerolog/log"
)

// InvoiceHandler handles billing.
type InvoiceHandler struct {
	service services.BillingServiceProvider
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(service services.BillingServiceProvider) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// GeneratePayload is the billing period, end exclusive.
type GeneratePayload struct {
	PeriodStart time.Time `json:"periodStart" validate:"required"`
	PeriodEnd   time.Time `json:"periodEnd" validate:"required,gtfield=PeriodStart"`
}

// GetAllForProject lists the guarded project's invoices.
func (h *InvoiceHandler) GetAllForProject(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.GetInvoicesForProject(projectFrom(r).ID)
	if err != nil {
		respondError(w, err, "retrieve invoices")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// Generate bills the guarded project's accepted work for a period.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var payload GeneratePayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	project := projectFrom(r)
	invoices, err := h.service.GenerateInvoices(project.ID, payload.PeriodStart, payload.PeriodEnd)
	if err != nil {
		log.Warn().Err(err).Str("project_id", project.ID).Msg("Failed to generate invoices")
		respondError(w, err, "generate invoices")
		return
	}
	writeJSON(w, http.StatusCreated, invoices)
}

// GetMine lists the caller's invoices.
func (h *InvoiceHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	invoices, err := h.service.GetInvoicesForAnnotator(claims.UserID)
	if err != nil {
		respondError(w, err, "retrieve invoices")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// Pay marks an invoice as paid.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	invoice, err := h.service.MarkInvoicePaid(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err, "pay invoice")
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}
