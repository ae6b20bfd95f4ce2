package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type LeadRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*entity.Lead, error)
	Save(ctx context.Context, lead *entity.Lead) error
}

type EventRepositoryInterface interface {
	// ListByLead retorna os eventos do lead em ordem ascendente de timestamp.
	// since zero = sem filtro.
	ListByLead(ctx context.Context, leadID string, since time.Time) ([]*entity.EngagementEvent, error)
	Append(ctx context.Context, event *entity.EngagementEvent) error
}

type TransitionRepositoryInterface interface {
	Append(ctx context.Context, record *entity.StageTransition) error
	// ListByLead retorna o histórico de auditoria, mais recente primeiro.
	ListByLead(ctx context.Context, leadID string) ([]*entity.StageTransition, error)
}

type ScoreHistoryRepositoryInterface interface {
	Append(ctx context.Context, record *entity.ScoreHistory) error
}

// RulesProviderInterface resolve as regras de pontuação de um produto.
// Implementações fazem cache por product_id com invalidação explícita.
type RulesProviderInterface interface {
	Get(ctx context.Context, productID string) (entity.ScoringRules, error)
	Invalidate(ctx context.Context, productID string) error
}

// TxManagerInterface executa fn dentro de um escopo transacional:
// qualquer erro desfaz todas as escritas feitas dentro dele.
type TxManagerInterface interface {
	RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// StageNotifierInterface publica mudanças de estágio para a camada de entrega
// (fila). Falha de notificação nunca desfaz a transição já commitada.
type StageNotifierInterface interface {
	PublishStageChange(ctx context.Context, notification StageChangeNotification) error
}
