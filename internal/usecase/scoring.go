package usecase

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

// ScoringEngine transforma o histórico ordenado de eventos de um lead em um
// score inteiro não-negativo. É determinístico: mesmos eventos + mesmas regras
// + mesmo "agora" produzem sempre o mesmo resultado.
type ScoringEngine struct {
	Leads   LeadRepositoryInterface
	Events  EventRepositoryInterface
	History ScoreHistoryRepositoryInterface
	Rules   RulesProviderInterface
	Tx      TxManagerInterface

	Locker *LeadLocker

	// Now permite fixar o relógio nos testes. Default: time.Now.
	Now func() time.Time
}

func NewScoringEngine(
	leads LeadRepositoryInterface,
	events EventRepositoryInterface,
	history ScoreHistoryRepositoryInterface,
	rules RulesProviderInterface,
	tx TxManagerInterface,
	locker *LeadLocker,
) *ScoringEngine {
	return &ScoringEngine{
		Leads:   leads,
		Events:  events,
		History: history,
		Rules:   rules,
		Tx:      tx,
		Locker:  locker,
		Now:     time.Now,
	}
}

func (e *ScoringEngine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// RulesFor resolve as regras do produto. Falha do provider degrada
// silenciosamente para o default (não-fatal, só logado).
func (e *ScoringEngine) RulesFor(ctx context.Context, productID string) entity.ScoringRules {
	if e.Rules == nil {
		return entity.DefaultScoringRules()
	}
	rules, err := e.Rules.Get(ctx, productID)
	if err != nil {
		log.Printf("⚠️ Scoring: regras do produto %s indisponíveis, usando default: %v", productID, err)
		return entity.DefaultScoringRules()
	}
	return rules
}

func roundScore(v float64) int {
	return int(math.Round(v))
}

// EventBaseScore: pontos base do tipo de evento vezes o multiplicador do
// canal. Tipo desconhecido cai para o score_impact gravado no próprio evento
// (zero se também ausente). Só o canal email tem multiplicador; os demais são
// neutros.
func (e *ScoringEngine) EventBaseScore(event *entity.EngagementEvent, rules entity.ScoringRules) int {
	points, ok := rules.BasePoints[event.EventType]
	if !ok {
		points = event.ScoreImpact
	}

	multiplier := 1.0
	if event.Channel == entity.ChannelEmail && rules.EmailChannelMultiplier > 0 {
		multiplier = rules.EmailChannelMultiplier
	}

	return roundScore(float64(points) * multiplier)
}

// ApplyTimeDecay: nenhum decaimento enquanto a idade do evento for menor ou
// igual a decay_start_hours; depois disso, time_decay_factor^floor(dias).
// Aplicado só na avaliação — nunca altera o score_impact gravado.
func (e *ScoringEngine) ApplyTimeDecay(score int, eventTimestamp time.Time, rules entity.ScoringRules, now time.Time) int {
	ageHours := now.Sub(eventTimestamp).Hours()
	if ageHours <= float64(rules.DecayStartHours) {
		return score
	}

	daysOld := math.Floor(ageHours / 24)
	factor := math.Pow(rules.TimeDecayFactor, daysOld)
	return roundScore(float64(score) * factor)
}

// ApplyEngagementBonuses compõe os bônus multiplicativamente sobre o score já
// decaído. priorEvents deve conter apenas eventos estritamente anteriores ao
// evento avaliado, em ordem cronológica.
func (e *ScoringEngine) ApplyEngagementBonuses(score int, event *entity.EngagementEvent, priorEvents []*entity.EngagementEvent, rules entity.ScoringRules) (int, float64) {
	multiplier := 1.0

	if event.Metadata.HighValueAction {
		multiplier *= 1.0 + rules.HighValueActionBonus
	}

	sameTypePriors := 0
	for _, prior := range priorEvents {
		if prior.EventType == event.EventType {
			sameTypePriors++
		}
	}

	if sameTypePriors == 0 && rules.FirstTimeBonus > 0 {
		multiplier *= rules.FirstTimeBonus
	}

	if days := consecutiveDaysBefore(event, priorEvents); days > 0 {
		bonus := math.Min(float64(days)*rules.ConsecutiveDaysBonus, 1.0)
		multiplier += bonus
	}

	if sameTypePriors >= 1 {
		// Retorno decrescente para spam do mesmo tipo de ação
		multiplier *= math.Pow(rules.RepeatEngagementDecay, float64(sameTypePriors))
	}

	final := roundScore(float64(score) * multiplier)
	if final < 0 {
		final = 0
	}
	return final, multiplier
}

// consecutiveDaysBefore conta dias de calendário consecutivos, andando para
// trás a partir do dia do evento (máximo 30), em que houve ao menos um evento
// anterior.
func consecutiveDaysBefore(event *entity.EngagementEvent, priorEvents []*entity.EngagementEvent) int {
	if len(priorEvents) == 0 {
		return 0
	}

	days := make(map[string]bool, len(priorEvents))
	for _, prior := range priorEvents {
		days[prior.Timestamp.UTC().Format("2006-01-02")] = true
	}

	eventDay := event.Timestamp.UTC().Truncate(24 * time.Hour)
	count := 0
	for i := 1; i <= 30; i++ {
		day := eventDay.AddDate(0, 0, -i).Format("2006-01-02")
		if !days[day] {
			break
		}
		count++
	}
	return count
}

// CalculateLeadScore recalcula o score total do lead a partir dos eventos
// dentro da janela de engajamento, em ordem cronológica estrita (os bônus de
// cada evento enxergam apenas eventos anteriores a ele). Retorna o total, o
// detalhamento por evento e o estágio recomendado pelos limiares (consultivo).
func (e *ScoringEngine) CalculateLeadScore(ctx context.Context, leadID string) (*ScoreResult, error) {
	lead, err := e.Leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	rules := e.RulesFor(ctx, lead.ProductID)
	now := e.now()

	since := now.Add(-time.Duration(rules.EngagementWindowHours) * time.Hour)
	events, err := e.Events.ListByLead(ctx, leadID, since)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to load engagement events: " + err.Error(),
		}
	}

	result := &ScoreResult{
		Breakdown: make([]EventScoreBreakdown, 0, len(events)),
	}

	total := 0
	recentCutoff := now.Add(-time.Duration(rules.RecentActivityWindowHours) * time.Hour)
	recentCount := 0

	for i, event := range events {
		priors := events[:i]

		base := e.EventBaseScore(event, rules)
		decayed := e.ApplyTimeDecay(base, event.Timestamp, rules, now)
		final, multiplier := e.ApplyEngagementBonuses(decayed, event, priors, rules)

		total += final

		result.Breakdown = append(result.Breakdown, EventScoreBreakdown{
			EventID:    event.ID,
			EventType:  event.EventType,
			Channel:    event.Channel,
			Timestamp:  event.Timestamp,
			BaseScore:  base,
			AfterDecay: decayed,
			Multiplier: multiplier,
			FinalScore: final,
		})

		if !event.Timestamp.Before(recentCutoff) {
			recentCount++
		}
	}

	// Bônus de atividade recente, com teto
	recentBonus := 5 * recentCount
	if recentBonus > 50 {
		recentBonus = 50
	}
	total += recentBonus

	if total < 0 {
		total = 0
	}

	result.Score = total
	result.RecentActivityBonus = recentBonus
	result.RecommendedStage = e.RecommendedStage(total, rules)
	return result, nil
}

// UpdateLeadScore recalcula e, somente se o valor mudou, grava o novo score e
// o registro de histórico numa única transação. Sem mudança = no-op.
func (e *ScoringEngine) UpdateLeadScore(ctx context.Context, leadID, reason string) (*ScoreUpdateResult, error) {
	e.Locker.Lock(leadID)
	defer e.Locker.Unlock(leadID)

	lead, err := e.Leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	calc, err := e.CalculateLeadScore(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if calc.Score == lead.EngagementScore {
		return &ScoreUpdateResult{
			Changed:  false,
			OldScore: lead.EngagementScore,
			NewScore: lead.EngagementScore,
		}, nil
	}

	oldScore := lead.EngagementScore
	history := entity.NewScoreHistory(leadID, oldScore, calc.Score, reason)

	err = e.Tx.RunAtomic(ctx, func(txCtx context.Context) error {
		lead.EngagementScore = calc.Score
		lead.UpdatedAt = time.Now()
		if err := e.Leads.Save(txCtx, lead); err != nil {
			return err
		}
		return e.History.Append(txCtx, history)
	})
	if err != nil {
		// Rollback já aconteceu: o estado anterior está preservado
		lead.EngagementScore = oldScore
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to persist score update: " + err.Error(),
		}
	}

	return &ScoreUpdateResult{
		Changed:  true,
		OldScore: oldScore,
		NewScore: calc.Score,
	}, nil
}

// RecommendedStage classifica um score contra os limiares de qualificação.
// Puramente consultivo: nunca mexe no estágio do lead.
func (e *ScoringEngine) RecommendedStage(score int, rules entity.ScoringRules) entity.Stage {
	switch {
	case score >= rules.CustomerThreshold:
		return entity.StageCustomer
	case score >= rules.QualifiedLeadThreshold:
		return entity.StageQualifiedLead
	case score >= rules.EngagedLeadThreshold:
		return entity.StageEngagedLead
	default:
		return entity.StageUser
	}
}
