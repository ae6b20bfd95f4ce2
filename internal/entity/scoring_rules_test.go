package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultScoringRulesAreValid(t *testing.T) {
	rules := DefaultScoringRules()

	assert.NoError(t, rules.Validate())

	// Todo tipo de evento conhecido tem pontos base
	for _, eventType := range KnownEventTypes {
		assert.Contains(t, rules.BasePoints, eventType)
	}

	// Customer é terminal: sem regra de avanço
	_, ok := rules.Progression[StageCustomer]
	assert.False(t, ok)
}

func TestScoringRulesValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ScoringRules)
	}{
		{"time_decay_factor zero", func(r *ScoringRules) { r.TimeDecayFactor = 0 }},
		{"time_decay_factor acima de 1", func(r *ScoringRules) { r.TimeDecayFactor = 1.5 }},
		{"repeat_engagement_decay negativo", func(r *ScoringRules) { r.RepeatEngagementDecay = -0.1 }},
		{"first_time_bonus abaixo de 1", func(r *ScoringRules) { r.FirstTimeBonus = 0.5 }},
		{"janela de engajamento zero", func(r *ScoringRules) { r.EngagementWindowHours = 0 }},
		{"limiares fora de ordem", func(r *ScoringRules) { r.QualifiedLeadThreshold = 10 }},
		{"regra de avanço com estágio inválido", func(r *ScoringRules) {
			r.Progression["Prospect"] = ProgressionRule{TargetStage: StageCustomer}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rules := DefaultScoringRules()
			tc.mutate(&rules)
			assert.Error(t, rules.Validate())
		})
	}
}
