package entity

import "errors"

var ErrScoringRulesNotFound = errors.New("regras de pontuação não encontradas")

// ProgressionConditions: condições combinadas com AND para avançar de estágio.
// Ponteiros nil significam "condição não configurada" (sempre satisfeita).
type ProgressionConditions struct {
	MinEngagementScore *int        `json:"min_engagement_score,omitempty"`
	MinEvents          *int        `json:"min_events,omitempty"`
	TimeWindowHours    *int        `json:"time_window_hours,omitempty"`
	ConversionEvent    bool        `json:"conversion_event,omitempty"`
	RequiredEventTypes []EventType `json:"required_event_types,omitempty"`
}

// ProgressionRule: exatamente uma regra de avanço por estágio de origem.
type ProgressionRule struct {
	TargetStage Stage                 `json:"target_stage"`
	Conditions  ProgressionConditions `json:"conditions"`
}

// ScoringRules é um value object imutável durante uma avaliação.
// Pode ser o default ou específico de um produto (cacheado por product_id).
type ScoringRules struct {
	ProductID string `json:"product_id,omitempty"` // Vazio = default global

	// Pontos base por tipo de evento
	BasePoints map[EventType]int `json:"base_points"`

	// Multiplicador de canal (só email tem multiplicador; demais são neutros)
	EmailChannelMultiplier float64 `json:"email_channel_multiplier"`

	// Decaimento temporal
	DecayStartHours int     `json:"decay_start_hours"`
	TimeDecayFactor float64 `json:"time_decay_factor"`

	// Bônus e penalidades de engajamento
	HighValueActionBonus  float64 `json:"high_value_action_bonus"`
	FirstTimeBonus        float64 `json:"first_time_bonus"`
	ConsecutiveDaysBonus  float64 `json:"consecutive_days_bonus"`
	RepeatEngagementDecay float64 `json:"repeat_engagement_decay"`

	// Janelas de avaliação
	EngagementWindowHours     int `json:"engagement_window_hours"`
	RecentActivityWindowHours int `json:"recent_activity_window_hours"`

	// Limiares de qualificação (Engaged < Qualified < Customer)
	EngagedLeadThreshold   int `json:"engaged_lead_threshold"`
	QualifiedLeadThreshold int `json:"qualified_lead_threshold"`
	CustomerThreshold      int `json:"customer_threshold"`

	// Regra de avanço por estágio de origem
	Progression map[Stage]ProgressionRule `json:"progression"`
}

func intPtr(v int) *int { return &v }

// DefaultScoringRules: fallback usado quando o produto não tem regras próprias
// ou quando o provider de regras falha (degradação silenciosa).
func DefaultScoringRules() ScoringRules {
	return ScoringRules{
		BasePoints: map[EventType]int{
			EventLogin:              10,
			EventEmailOpen:          5,
			EventEmailClick:         15,
			EventWhatsAppReply:      25,
			EventChatbotInteraction: 8,
		},
		EmailChannelMultiplier: 1.2,

		DecayStartHours: 72,
		TimeDecayFactor: 0.95,

		HighValueActionBonus: 0.5,
		// Neutro por default; produtos podem configurar > 1 para premiar a
		// primeira ocorrência de cada tipo de evento.
		FirstTimeBonus:        1.0,
		ConsecutiveDaysBonus:  0.1,
		RepeatEngagementDecay: 0.7,

		EngagementWindowHours:     720, // 30 dias
		RecentActivityWindowHours: 24,

		EngagedLeadThreshold:   50,
		QualifiedLeadThreshold: 150,
		CustomerThreshold:      300,

		Progression: map[Stage]ProgressionRule{
			StageUser: {
				TargetStage: StageEngagedLead,
				Conditions: ProgressionConditions{
					MinEngagementScore: intPtr(50),
					MinEvents:          intPtr(3),
				},
			},
			StageEngagedLead: {
				TargetStage: StageQualifiedLead,
				Conditions: ProgressionConditions{
					MinEngagementScore: intPtr(150),
					MinEvents:          intPtr(5),
					TimeWindowHours:    intPtr(336), // 14 dias
				},
			},
			StageQualifiedLead: {
				TargetStage: StageCustomer,
				Conditions: ProgressionConditions{
					MinEngagementScore: intPtr(300),
					ConversionEvent:    true,
				},
			},
			// Customer é terminal: sem regra de avanço
		},
	}
}

// Validate confere a coerência mínima do value object.
func (r ScoringRules) Validate() error {
	if r.TimeDecayFactor <= 0 || r.TimeDecayFactor > 1 {
		return errors.New("time_decay_factor must be in (0, 1]")
	}
	if r.RepeatEngagementDecay <= 0 || r.RepeatEngagementDecay > 1 {
		return errors.New("repeat_engagement_decay must be in (0, 1]")
	}
	if r.FirstTimeBonus < 1 {
		return errors.New("first_time_bonus must be >= 1")
	}
	if r.EngagementWindowHours <= 0 {
		return errors.New("engagement_window_hours must be positive")
	}
	if !(r.EngagedLeadThreshold < r.QualifiedLeadThreshold && r.QualifiedLeadThreshold < r.CustomerThreshold) {
		return errors.New("thresholds must satisfy engaged < qualified < customer")
	}
	for stage, rule := range r.Progression {
		if !stage.IsValid() || !rule.TargetStage.IsValid() {
			return errors.New("progression rule references an invalid stage")
		}
	}
	return nil
}
