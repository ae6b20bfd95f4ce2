package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

// stageGraph: grafo dirigido de estágios como mapa de adjacência.
// Não é um funil linear: Engaged_Lead e Qualified_Lead podem regredir um
// passo (queda de engajamento), mas Customer é terminal e nunca regride.
var stageGraph = map[entity.Stage][]entity.Stage{
	entity.StageUser:          {entity.StageEngagedLead},
	entity.StageEngagedLead:   {entity.StageQualifiedLead, entity.StageUser},
	entity.StageQualifiedLead: {entity.StageCustomer, entity.StageEngagedLead},
	entity.StageCustomer:      {},
}

// TransitionEngine é dono do grafo de estágios: decide elegibilidade e
// executa/audita mudanças de estágio.
type TransitionEngine struct {
	Leads       LeadRepositoryInterface
	Events      EventRepositoryInterface
	Transitions TransitionRepositoryInterface
	Scoring     *ScoringEngine
	Tx          TxManagerInterface
	Notifier    StageNotifierInterface

	Locker *LeadLocker
}

func NewTransitionEngine(
	leads LeadRepositoryInterface,
	events EventRepositoryInterface,
	transitions TransitionRepositoryInterface,
	scoring *ScoringEngine,
	tx TxManagerInterface,
	notifier StageNotifierInterface,
	locker *LeadLocker,
) *TransitionEngine {
	engine := &TransitionEngine{
		Leads:       leads,
		Events:      events,
		Transitions: transitions,
		Scoring:     scoring,
		Tx:          tx,
		Notifier:    notifier,
		Locker:      locker,
	}
	engine.mustValidateGraph()
	return engine
}

// mustValidateGraph confere o grafo na construção: todo estágio presente, toda
// aresta apontando para estágio válido, Customer sem saídas.
func (e *TransitionEngine) mustValidateGraph() {
	for _, stage := range entity.AllStages {
		targets, ok := stageGraph[stage]
		if !ok {
			panic(fmt.Sprintf("grafo de estágios sem entrada para %s", stage))
		}
		for _, target := range targets {
			if !target.IsValid() {
				panic(fmt.Sprintf("grafo de estágios com aresta inválida %s -> %s", stage, target))
			}
			if target == stage {
				panic(fmt.Sprintf("grafo de estágios com self-loop em %s", stage))
			}
		}
	}
	if len(stageGraph[entity.StageCustomer]) != 0 {
		panic("Customer deve ser terminal")
	}
}

// IsValidTransition: lookup puro sobre a tabela de adjacência.
func (e *TransitionEngine) IsValidTransition(from, to entity.Stage) bool {
	for _, target := range stageGraph[from] {
		if target == to {
			return true
		}
	}
	return false
}

// NextStages retorna as saídas possíveis de um estágio.
func (e *TransitionEngine) NextStages(from entity.Stage) []entity.Stage {
	targets := stageGraph[from]
	out := make([]entity.Stage, len(targets))
	copy(out, targets)
	return out
}

// EvaluateProgression avalia a única regra de avanço configurada para o
// estágio atual do lead. Ausência de regra não é erro: retorna
// can_progress=false com motivo explícito.
func (e *TransitionEngine) EvaluateProgression(ctx context.Context, leadID string) (*ProgressionResult, error) {
	lead, err := e.Leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	rules := e.Scoring.RulesFor(ctx, lead.ProductID)

	rule, ok := rules.Progression[lead.Stage]
	if !ok {
		return &ProgressionResult{
			CanProgress:  false,
			CurrentStage: lead.Stage,
			Reason:       fmt.Sprintf("no progression rule configured for stage %s", lead.Stage),
		}, nil
	}

	since := e.Scoring.now().Add(-time.Duration(rules.EngagementWindowHours) * time.Hour)
	events, err := e.Events.ListByLead(ctx, leadID, since)
	if err != nil {
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to load engagement events: " + err.Error(),
		}
	}

	evaluation := e.evaluateConditions(lead, events, rule.Conditions)

	result := &ProgressionResult{
		CanProgress:  evaluation.Met,
		CurrentStage: lead.Stage,
		NextStage:    rule.TargetStage,
		Evaluation:   evaluation,
	}
	if !evaluation.Met {
		result.Reason = "conditions not met: " + strings.Join(evaluation.FailedConditions, ", ")
	}
	return result, nil
}

// evaluateConditions avalia cada condição de forma independente e combina com
// AND. Condições não configuradas contam como satisfeitas.
func (e *TransitionEngine) evaluateConditions(lead *entity.Lead, events []*entity.EngagementEvent, cond entity.ProgressionConditions) *ProgressionEvaluation {
	eval := &ProgressionEvaluation{
		Met:     true,
		Details: map[string]ConditionDetail{},
	}

	record := func(name string, met bool, expected, actual string) {
		eval.Details[name] = ConditionDetail{Met: met, Expected: expected, Actual: actual}
		if !met {
			eval.Met = false
			eval.FailedConditions = append(eval.FailedConditions, name)
		}
	}

	if cond.MinEngagementScore != nil {
		met := lead.EngagementScore >= *cond.MinEngagementScore
		record("min_engagement_score", met,
			">= "+strconv.Itoa(*cond.MinEngagementScore),
			strconv.Itoa(lead.EngagementScore))
	}

	if cond.MinEvents != nil {
		met := len(events) >= *cond.MinEvents
		record("min_events", met,
			">= "+strconv.Itoa(*cond.MinEvents),
			strconv.Itoa(len(events)))
	}

	if cond.TimeWindowHours != nil {
		cutoff := e.Scoring.now().Add(-time.Duration(*cond.TimeWindowHours) * time.Hour)
		inWindow := 0
		for _, event := range events {
			if !event.Timestamp.Before(cutoff) {
				inWindow++
			}
		}
		required := 1
		if cond.MinEvents != nil {
			required = *cond.MinEvents
		}
		met := inWindow >= required
		record("time_window_hours", met,
			fmt.Sprintf(">= %d events within %dh", required, *cond.TimeWindowHours),
			strconv.Itoa(inWindow))
	}

	if cond.ConversionEvent {
		found := false
		for _, event := range events {
			if event.Metadata.Conversion {
				found = true
				break
			}
		}
		record("conversion_event", found, "at least one conversion event", strconv.FormatBool(found))
	}

	if len(cond.RequiredEventTypes) > 0 {
		present := map[entity.EventType]bool{}
		for _, event := range events {
			present[event.EventType] = true
		}
		var missing []string
		for _, required := range cond.RequiredEventTypes {
			if !present[required] {
				missing = append(missing, string(required))
			}
		}
		met := len(missing) == 0
		actual := "all present"
		if !met {
			actual = "missing: " + strings.Join(missing, ", ")
		}
		record("required_event_types", met, fmt.Sprintf("%v", cond.RequiredEventTypes), actual)
	}

	return eval
}

// ExecuteTransition valida a aresta no grafo e, numa única transação, atualiza
// o estágio do lead e grava exatamente um registro de auditoria.
func (e *TransitionEngine) ExecuteTransition(ctx context.Context, leadID string, newStage entity.Stage, reason string, metadata map[string]string) (*TransitionResult, error) {
	e.Locker.Lock(leadID)
	defer e.Locker.Unlock(leadID)

	return e.transition(ctx, leadID, newStage, reason, metadata, false)
}

// ForceTransition usa o mesmo caminho atômico, mas ignora a validação de
// adjacência. Só para override administrativo manual — nunca é chamado
// automaticamente. A auditoria sai marcada forced=true.
func (e *TransitionEngine) ForceTransition(ctx context.Context, leadID string, newStage entity.Stage, reason string, metadata map[string]string) (*TransitionResult, error) {
	e.Locker.Lock(leadID)
	defer e.Locker.Unlock(leadID)

	return e.transition(ctx, leadID, newStage, reason, metadata, true)
}

func (e *TransitionEngine) transition(ctx context.Context, leadID string, newStage entity.Stage, reason string, metadata map[string]string, forced bool) (*TransitionResult, error) {
	if !newStage.IsValid() {
		return nil, &DomainError{
			Code:    "VALIDATION_ERROR",
			Message: fmt.Sprintf("estágio inválido: %q", newStage),
		}
	}

	lead, err := e.Leads.FindByID(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if lead.Stage == newStage {
		return nil, &DomainError{
			Code:    "ALREADY_IN_STAGE",
			Message: fmt.Sprintf("lead já está no estágio %s", newStage),
		}
	}

	if !forced && !e.IsValidTransition(lead.Stage, newStage) {
		return nil, &InvalidTransitionError{From: lead.Stage, To: newStage}
	}

	oldStage := lead.Stage
	record, err := entity.NewStageTransition(leadID, oldStage, newStage, reason, metadata, forced)
	if err != nil {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: err.Error()}
	}

	err = e.Tx.RunAtomic(ctx, func(txCtx context.Context) error {
		lead.Stage = newStage
		lead.UpdatedAt = time.Now()
		if err := e.Leads.Save(txCtx, lead); err != nil {
			return err
		}
		return e.Transitions.Append(txCtx, record)
	})
	if err != nil {
		lead.Stage = oldStage
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to persist stage transition: " + err.Error(),
		}
	}

	if e.Notifier != nil {
		notification := StageChangeNotification{
			LeadID:    lead.ID,
			CRMRef:    lead.CRMRef,
			ProductID: lead.ProductID,
			FromStage: string(oldStage),
			ToStage:   string(newStage),
			Reason:    reason,
			Forced:    forced,
			Metadata:  metadata,
		}
		if err := e.Notifier.PublishStageChange(ctx, notification); err != nil {
			// A transição já commitou; notificação é best-effort
			log.Printf("⚠️ Falha ao publicar notificação de estágio (lead %s): %v", lead.ID, err)
		}
	}

	return &TransitionResult{
		OldStage:  oldStage,
		NewStage:  newStage,
		Reason:    reason,
		Timestamp: record.TransitionedAt,
	}, nil
}

// AutoProgressLead compõe avaliação + transição. "Não elegível" não é erro:
// vira resultado discriminado com progressed=false.
func (e *TransitionEngine) AutoProgressLead(ctx context.Context, leadID string) (*AutoProgressResult, error) {
	evaluation, err := e.EvaluateProgression(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if !evaluation.CanProgress {
		reason := evaluation.Reason
		if reason == "" {
			reason = "conditions not met"
		}
		return &AutoProgressResult{
			Progressed: false,
			Reason:     reason,
			Evaluation: evaluation.Evaluation,
		}, nil
	}

	transition, err := e.ExecuteTransition(ctx, leadID, evaluation.NextStage, "auto_progression", nil)
	if err != nil {
		return nil, err
	}

	return &AutoProgressResult{
		Progressed: true,
		Transition: transition,
		Evaluation: evaluation.Evaluation,
	}, nil
}

// BatchAutoProgress processa os leads sequencialmente (ordem determinística e
// auditável, carga controlada). Falha de um lead vira item de erro sem abortar
// o lote; o resultado é alinhado por índice com a entrada e ids duplicados são
// pulados na segunda ocorrência.
func (e *TransitionEngine) BatchAutoProgress(ctx context.Context, leadIDs []string) []BatchProgressItem {
	results := make([]BatchProgressItem, 0, len(leadIDs))
	seen := make(map[string]bool, len(leadIDs))

	for _, leadID := range leadIDs {
		if seen[leadID] {
			results = append(results, BatchProgressItem{
				LeadID:     leadID,
				Progressed: false,
				Reason:     "duplicate lead id in batch",
			})
			continue
		}
		seen[leadID] = true

		result, err := e.AutoProgressLead(ctx, leadID)
		if err != nil {
			results = append(results, BatchProgressItem{
				LeadID:     leadID,
				Progressed: false,
				Error:      err.Error(),
			})
			continue
		}

		results = append(results, BatchProgressItem{
			LeadID:     leadID,
			Progressed: result.Progressed,
			Reason:     result.Reason,
			Result:     result,
		})
	}

	return results
}

// TransitionHistory: auditoria do lead, mais recente primeiro. Só leitura.
func (e *TransitionEngine) TransitionHistory(ctx context.Context, leadID string) ([]*entity.StageTransition, error) {
	return e.Transitions.ListByLead(ctx, leadID)
}
