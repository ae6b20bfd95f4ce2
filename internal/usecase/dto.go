package usecase

import (
	"time"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type RecordEventInput struct {
	EventType string               `json:"event_type"`
	Channel   string               `json:"channel"`
	Timestamp string               `json:"timestamp,omitempty"` // RFC3339; vazio = agora
	Metadata  entity.EventMetadata `json:"metadata"`
}

type RecordEventOutput struct {
	Event       *entity.EngagementEvent `json:"event"`
	ScoreUpdate *ScoreUpdateResult      `json:"score_update"`
}

// EventScoreBreakdown: contribuição de um evento no cálculo, para
// observabilidade e debug do score.
type EventScoreBreakdown struct {
	EventID    string           `json:"event_id"`
	EventType  entity.EventType `json:"event_type"`
	Channel    entity.Channel   `json:"channel"`
	Timestamp  time.Time        `json:"timestamp"`
	BaseScore  int              `json:"base_score"`
	AfterDecay int              `json:"after_decay"`
	Multiplier float64          `json:"multiplier"`
	FinalScore int              `json:"final_score"`
}

type ScoreResult struct {
	Score               int                   `json:"score"`
	RecentActivityBonus int                   `json:"recent_activity_bonus"`
	RecommendedStage    entity.Stage          `json:"recommended_stage"`
	Breakdown           []EventScoreBreakdown `json:"breakdown"`
}

type ScoreUpdateResult struct {
	Changed  bool `json:"changed"`
	OldScore int  `json:"old_score"`
	NewScore int  `json:"new_score"`
}

type TransitionResult struct {
	OldStage  entity.Stage `json:"old_stage"`
	NewStage  entity.Stage `json:"new_stage"`
	Reason    string       `json:"reason"`
	Timestamp time.Time    `json:"timestamp"`
}

// ConditionDetail: resultado individual de uma condição de avanço.
type ConditionDetail struct {
	Met      bool   `json:"met"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type ProgressionEvaluation struct {
	Met              bool                       `json:"met"`
	Details          map[string]ConditionDetail `json:"details"`
	FailedConditions []string                   `json:"failed_conditions"`
}

type ProgressionResult struct {
	CanProgress  bool                   `json:"can_progress"`
	CurrentStage entity.Stage           `json:"current_stage"`
	NextStage    entity.Stage           `json:"next_stage,omitempty"`
	Reason       string                 `json:"reason,omitempty"`
	Evaluation   *ProgressionEvaluation `json:"evaluation,omitempty"`
}

type AutoProgressResult struct {
	Progressed bool                   `json:"progressed"`
	Reason     string                 `json:"reason,omitempty"`
	Transition *TransitionResult      `json:"transition,omitempty"`
	Evaluation *ProgressionEvaluation `json:"evaluation,omitempty"`
}

// BatchProgressItem: um resultado por lead de entrada, na mesma ordem.
type BatchProgressItem struct {
	LeadID     string              `json:"lead_id"`
	Progressed bool                `json:"progressed"`
	Reason     string              `json:"reason,omitempty"`
	Error      string              `json:"error,omitempty"`
	Result     *AutoProgressResult `json:"result,omitempty"`
}

// StageChangeNotification: payload publicado na fila para a camada de entrega.
type StageChangeNotification struct {
	LeadID    string            `json:"lead_id"`
	CRMRef    string            `json:"crm_ref"`
	ProductID string            `json:"product_id"`
	FromStage string            `json:"from_stage"`
	ToStage   string            `json:"to_stage"`
	Reason    string            `json:"reason"`
	Forced    bool              `json:"forced"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
