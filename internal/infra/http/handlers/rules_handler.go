package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

type RulesHandler struct {
	rules usecase.RulesProviderInterface
}

func NewRulesHandler(rules usecase.RulesProviderInterface) *RulesHandler {
	return &RulesHandler{rules: rules}
}

// HandleGetRules: GET /scoring-rules/{productID}
func (h *RulesHandler) HandleGetRules(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	rules, err := h.rules.Get(r.Context(), productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

// HandleInvalidate: POST /scoring-rules/{productID}/invalidate
// productID "_all" limpa o cache inteiro.
func (h *RulesHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "_all" {
		productID = ""
	}

	if err := h.rules.Invalidate(r.Context(), productID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
