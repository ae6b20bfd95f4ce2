package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-engagement/internal/entity"
	"github.com/xavierca1/ligue-engagement/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

type TransitionHandler struct {
	engine *usecase.TransitionEngine
}

func NewTransitionHandler(engine *usecase.TransitionEngine) *TransitionHandler {
	return &TransitionHandler{engine: engine}
}

type StageChangeRequest struct {
	Stage    string            `json:"stage"`
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type BatchProgressRequest struct {
	LeadIDs []string `json:"lead_ids"`
}

// HandleRequestStageChange: POST /leads/{leadID}/stage (validado pelo grafo)
func (h *TransitionHandler) HandleRequestStageChange(w http.ResponseWriter, r *http.Request) {
	h.handleStageChange(w, r, false)
}

// HandleForceStageChange: POST /leads/{leadID}/stage/force (override manual)
func (h *TransitionHandler) HandleForceStageChange(w http.ResponseWriter, r *http.Request) {
	h.handleStageChange(w, r, true)
}

func (h *TransitionHandler) handleStageChange(w http.ResponseWriter, r *http.Request, forced bool) {
	leadID := chi.URLParam(r, "leadID")

	var req StageChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido: "+err.Error())
		return
	}

	stage, err := entity.ParseStage(req.Stage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var result *usecase.TransitionResult
	if forced {
		result, err = h.engine.ForceTransition(r.Context(), leadID, stage, req.Reason, req.Metadata)
	} else {
		result, err = h.engine.ExecuteTransition(r.Context(), leadID, stage, req.Reason, req.Metadata)
	}
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	middleware.RecordStageTransition(string(result.OldStage), string(result.NewStage), forced)
	writeJSON(w, http.StatusOK, result)
}

// HandleEvaluateProgression: GET /leads/{leadID}/progression
func (h *TransitionHandler) HandleEvaluateProgression(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	result, err := h.engine.EvaluateProgression(r.Context(), leadID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleAutoProgress: POST /leads/{leadID}/progression
func (h *TransitionHandler) HandleAutoProgress(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	result, err := h.engine.AutoProgressLead(r.Context(), leadID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	if result.Progressed && result.Transition != nil {
		middleware.RecordStageTransition(string(result.Transition.OldStage), string(result.Transition.NewStage), false)
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleBatchProgress: POST /leads/progression/batch
// Chamado pelo orquestrador externo; nunca aborta o lote por causa de um lead.
func (h *TransitionHandler) HandleBatchProgress(w http.ResponseWriter, r *http.Request) {
	var req BatchProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido: "+err.Error())
		return
	}

	if len(req.LeadIDs) == 0 {
		writeError(w, http.StatusBadRequest, "lead_ids is required")
		return
	}

	results := h.engine.BatchAutoProgress(r.Context(), req.LeadIDs)

	for _, item := range results {
		if item.Progressed && item.Result != nil && item.Result.Transition != nil {
			middleware.RecordStageTransition(string(item.Result.Transition.OldStage), string(item.Result.Transition.NewStage), false)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// HandleTransitionHistory: GET /leads/{leadID}/transitions
func (h *TransitionHandler) HandleTransitionHistory(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	records, err := h.engine.TransitionHistory(r.Context(), leadID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transitions": records})
}
