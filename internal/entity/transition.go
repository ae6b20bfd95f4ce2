package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrSameStageTransition = errors.New("transição para o mesmo estágio não gera auditoria")

// Entidade: StageTransition
// Registro de auditoria append-only. Exatamente um por mudança de estágio
// bem-sucedida; nunca é alterado nem apagado.
type StageTransition struct {
	ID             string            `json:"id"`
	LeadID         string            `json:"lead_id"`
	FromStage      Stage             `json:"from_stage"`
	ToStage        Stage             `json:"to_stage"`
	Reason         string            `json:"reason"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Forced         bool              `json:"forced"`
	TransitionedAt time.Time         `json:"transitioned_at"`
}

// Factory: garante o invariante from != to.
func NewStageTransition(leadID string, from, to Stage, reason string, metadata map[string]string, forced bool) (*StageTransition, error) {
	if leadID == "" {
		return nil, errors.New("lead_id is required")
	}
	if from == to {
		return nil, ErrSameStageTransition
	}
	if !from.IsValid() || !to.IsValid() {
		return nil, errors.New("estágio inválido no registro de transição")
	}

	return &StageTransition{
		ID:             uuid.New().String(),
		LeadID:         leadID,
		FromStage:      from,
		ToStage:        to,
		Reason:         reason,
		Metadata:       metadata,
		Forced:         forced,
		TransitionedAt: time.Now(),
	}, nil
}
