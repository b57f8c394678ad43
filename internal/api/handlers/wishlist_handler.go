package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/annotation-hub-be/internal/services"
)

// WishlistHandler handles a manager's saved experts.
type WishlistHandler struct {
	service services.WishlistServiceProvider
}

// NewWishlistHandler creates a new WishlistHandler.
func NewWishlistHandler(service services.WishlistServiceProvider) *WishlistHandler {
	return &WishlistHandler{service: service}
}

// WishlistPayload saves an expert.
type WishlistPayload struct {
	ExpertID string `json:"expertId" validate:"required"`
	Note     string `json:"note" validate:"max=2000"`
}

// GetAll lists the caller's wishlist.
func (h *WishlistHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	entries, err := h.service.GetWishlist(claims.UserID)
	if err != nil {
		respondError(w, err, "retrieve wishlist")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Add saves an expert to the caller's wishlist.
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	var payload WishlistPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	entry, err := h.service.AddToWishlist(claims.UserID, payload.ExpertID, payload.Note)
	if err != nil {
		respondError(w, err, "add to wishlist")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Remove deletes an expert from the caller's wishlist.
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveFromWishlist(claims.UserID, chi.URLParam(r, "expertId")); err != nil {
		respondError(w, err, "remove from wishlist")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
