package usecase

import (
	"context"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

// EngagementService é a fachada consumida pela camada HTTP e pelo worker de
// ingestão: grava eventos, dispara o recalculo de score e expõe o estado
// atual.
type EngagementService struct {
	Scoring     *ScoringEngine
	Transitions *TransitionEngine

	// AutoProgress liga a avaliação de avanço logo após cada evento gravado.
	AutoProgress bool
}

func NewEngagementService(scoring *ScoringEngine, transitions *TransitionEngine, autoProgress bool) *EngagementService {
	return &EngagementService{
		Scoring:      scoring,
		Transitions:  transitions,
		AutoProgress: autoProgress,
	}
}

// RecordEngagementEvent valida o payload, calcula o score_impact uma única vez
// (gravado para sempre no evento), persiste o evento e recalcula o score do
// lead. Nenhuma escrita acontece se a validação falhar.
func (s *EngagementService) RecordEngagementEvent(ctx context.Context, leadID string, input RecordEventInput) (*RecordEventOutput, error) {
	ts, validationErrors := ValidateRecordEventInput(input)
	if len(validationErrors) > 0 {
		return nil, validationErrorsToDomain(validationErrors)
	}

	lead, err := s.Scoring.Leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	event, err := entity.NewEngagementEvent(leadID, entity.EventType(input.EventType), entity.Channel(input.Channel), ts, input.Metadata)
	if err != nil {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}

	// score_impact: calculado na criação com as regras vigentes e nunca
	// recalculado, mesmo que as regras mudem depois
	rules := s.Scoring.RulesFor(ctx, lead.ProductID)
	event.ScoreImpact = s.Scoring.EventBaseScore(event, rules)

	if err := s.Scoring.Events.Append(ctx, event); err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to append engagement event: " + err.Error(),
		}
	}

	scoreUpdate, err := s.Scoring.UpdateLeadScore(ctx, leadID, "event:"+string(event.EventType))
	if err != nil {
		return nil, err
	}

	if s.AutoProgress {
		if _, err := s.Transitions.AutoProgressLead(ctx, leadID); err != nil {
			// O evento e o score já estão gravados; avanço automático aqui é
			// best-effort e pode ser repetido pelo orquestrador externo
			return &RecordEventOutput{Event: event, ScoreUpdate: scoreUpdate}, nil
		}
	}

	return &RecordEventOutput{Event: event, ScoreUpdate: scoreUpdate}, nil
}

// GetCurrentScore retorna o score recalculado na hora, com o detalhamento por
// evento. Não grava nada.
func (s *EngagementService) GetCurrentScore(ctx context.Context, leadID string) (*ScoreResult, error) {
	return s.Scoring.CalculateLeadScore(ctx, leadID)
}
