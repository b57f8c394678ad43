package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/annotation-hub-be/internal/translate"
	"github.com/rs/zerolog/log"
)

// Translator translates text with provider fallback.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) (translate.Result, error)
}

// TranslateHandler exposes the translation chain.
type TranslateHandler struct {
	translator Translator
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(translator Translator) *TranslateHandler {
	return &TranslateHandler{translator: translator}
}

// Translate handles POST /translate.
func (h *TranslateHandler) Translate(w http.ResponseWriter, r *http.Request) {
	var req translate.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.translator.Translate(r.Context(), req)
	if err != nil {
		log.Warn().Err(err).Str("target", req.Target).Msg("Translation failed")
		respondUpstreamError(w, err, "translate")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
