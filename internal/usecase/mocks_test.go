package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Save(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

// MockEventRepository
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) ListByLead(ctx context.Context, leadID string, since time.Time) ([]*entity.EngagementEvent, error) {
	args := m.Called(ctx, leadID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.EngagementEvent), args.Error(1)
}

func (m *MockEventRepository) Append(ctx context.Context, event *entity.EngagementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockTransitionRepository
type MockTransitionRepository struct {
	mock.Mock
}

func (m *MockTransitionRepository) Append(ctx context.Context, record *entity.StageTransition) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockTransitionRepository) ListByLead(ctx context.Context, leadID string) ([]*entity.StageTransition, error) {
	args := m.Called(ctx, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.StageTransition), args.Error(1)
}

// MockScoreHistoryRepository
type MockScoreHistoryRepository struct {
	mock.Mock
}

func (m *MockScoreHistoryRepository) Append(ctx context.Context, record *entity.ScoreHistory) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockRulesProvider
type MockRulesProvider struct {
	mock.Mock
}

func (m *MockRulesProvider) Get(ctx context.Context, productID string) (entity.ScoringRules, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(entity.ScoringRules), args.Error(1)
}

func (m *MockRulesProvider) Invalidate(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockTxManager executa o bloco direto (sem banco); erros configurados
// simulam falha de transação.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// MockStageNotifier
type MockStageNotifier struct {
	mock.Mock
}

func (m *MockStageNotifier) PublishStageChange(ctx context.Context, notification StageChangeNotification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}
