package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestScoringEngine(leads *MockLeadRepository, events *MockEventRepository, history *MockScoreHistoryRepository, tx *MockTxManager) *ScoringEngine {
	rules := new(MockRulesProvider)
	rules.On("Get", mock.Anything, mock.Anything).Return(entity.DefaultScoringRules(), nil)

	engine := NewScoringEngine(leads, events, history, rules, tx, NewLeadLocker())
	engine.Now = func() time.Time { return fixedNow }
	return engine
}

func testLead(stage entity.Stage, score int) *entity.Lead {
	return &entity.Lead{
		ID:              "lead-123",
		CRMRef:          "crm-456",
		OrganizationID:  "org-1",
		ProductID:       "prod-1",
		Stage:           stage,
		EngagementScore: score,
		CreatedAt:       fixedNow.Add(-60 * 24 * time.Hour),
		UpdatedAt:       fixedNow,
	}
}

func makeEvent(eventType entity.EventType, channel entity.Channel, ts time.Time, metadata entity.EventMetadata) *entity.EngagementEvent {
	event, _ := entity.NewEngagementEvent("lead-123", eventType, channel, ts, metadata)
	return event
}

func TestCalculateLeadScoreEmptyHistory(t *testing.T) {
	ctx := context.Background()

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(testLead(entity.StageUser, 0), nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return([]*entity.EngagementEvent{}, nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), new(MockTxManager))

	result, err := engine.CalculateLeadScore(ctx, "lead-123")

	assert.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Empty(t, result.Breakdown)
}

func TestCalculateLeadScoreSingleLoginDefaultRules(t *testing.T) {
	ctx := context.Background()

	// Login de 48h atrás: dentro da janela sem decaimento (72h), fora da
	// janela de atividade recente (24h)
	events := []*entity.EngagementEvent{
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-48*time.Hour), entity.EventMetadata{}),
	}

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(testLead(entity.StageUser, 0), nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), new(MockTxManager))

	result, err := engine.CalculateLeadScore(ctx, "lead-123")

	assert.NoError(t, err)
	assert.Equal(t, 10, result.Score) // login_points = 10, sem bônus, sem decaimento
	assert.Len(t, result.Breakdown, 1)
	assert.Equal(t, 10, result.Breakdown[0].FinalScore)
	assert.Equal(t, entity.StageUser, result.RecommendedStage) // 10 < limiar de 50
}

func TestCalculateLeadScoreDeterministic(t *testing.T) {
	ctx := context.Background()

	events := []*entity.EngagementEvent{
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-100*time.Hour), entity.EventMetadata{}),
		makeEvent(entity.EventEmailOpen, entity.ChannelEmail, fixedNow.Add(-50*time.Hour), entity.EventMetadata{}),
		makeEvent(entity.EventEmailClick, entity.ChannelEmail, fixedNow.Add(-10*time.Hour), entity.EventMetadata{HighValueAction: true}),
	}

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(testLead(entity.StageUser, 0), nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), new(MockTxManager))

	first, err := engine.CalculateLeadScore(ctx, "lead-123")
	assert.NoError(t, err)
	second, err := engine.CalculateLeadScore(ctx, "lead-123")
	assert.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.GreaterOrEqual(t, first.Score, 0)
}

func TestHighValueActionIncreasesScore(t *testing.T) {
	ctx := context.Background()
	ts := fixedNow.Add(-48 * time.Hour)

	calc := func(metadata entity.EventMetadata) int {
		mockLeads := new(MockLeadRepository)
		mockEvents := new(MockEventRepository)
		mockLeads.On("FindByID", mock.Anything, "lead-123").Return(testLead(entity.StageUser, 0), nil)
		mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).
			Return([]*entity.EngagementEvent{makeEvent(entity.EventLogin, entity.ChannelProduct, ts, metadata)}, nil)

		engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), new(MockTxManager))
		result, err := engine.CalculateLeadScore(ctx, "lead-123")
		assert.NoError(t, err)
		return result.Score
	}

	plain := calc(entity.EventMetadata{})
	highValue := calc(entity.EventMetadata{HighValueAction: true})

	assert.GreaterOrEqual(t, highValue, plain+1)
}

func TestRepeatEngagementDecayApproximatesInverseSqrt(t *testing.T) {
	ctx := context.Background()

	// 3 logins no mesmo dia: sem bônus de dias consecutivos, só o decay de
	// repetição agindo
	events := []*entity.EngagementEvent{
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-52*time.Hour), entity.EventMetadata{}),
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-50*time.Hour), entity.EventMetadata{}),
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-48*time.Hour), entity.EventMetadata{}),
	}

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(testLead(entity.StageUser, 0), nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), new(MockTxManager))

	result, err := engine.CalculateLeadScore(ctx, "lead-123")
	assert.NoError(t, err)
	assert.Len(t, result.Breakdown, 3)

	first := result.Breakdown[0].FinalScore
	for n := 2; n <= 3; n++ {
		nth := result.Breakdown[n-1].FinalScore
		assert.LessOrEqual(t, nth, first, "ocorrência %d deve contribuir <= que a primeira", n)

		expected := float64(first) / math.Sqrt(float64(n))
		assert.InDelta(t, expected, float64(nth), 2.0, "ocorrência %d deve aproximar first/sqrt(N)", n)
	}
}

func TestConsecutiveDaysBonus(t *testing.T) {
	ctx := context.Background()

	// Tipos diferentes em 3 dias consecutivos antes do evento avaliado:
	// sem first-time penalty nem repeat decay no quarto evento
	events := []*entity.EngagementEvent{
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-72*time.Hour), entity.EventMetadata{}),
		makeEvent(entity.EventEmailOpen, entity.ChannelEmail, fixedNow.Add(-48*time.Hour), entity.EventMetadata{}),
		makeEvent(entity.EventEmailClick, entity.ChannelEmail, fixedNow.Add(-24*time.Hour), entity.EventMetadata{}),
		makeEvent(entity.EventWhatsAppReply, entity.ChannelWhatsApp, fixedNow.Add(-1*time.Hour), entity.EventMetadata{}),
	}

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(testLead(entity.StageUser, 0), nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), new(MockTxManager))

	result, err := engine.CalculateLeadScore(ctx, "lead-123")
	assert.NoError(t, err)

	last := result.Breakdown[3]
	// 3 dias consecutivos com eventos -> multiplicador 1.0 + 3*0.1
	assert.InDelta(t, 1.3, last.Multiplier, 0.001)
	// whatsapp_reply = 25 pontos base * 1.3 = 32.5 -> 33
	assert.Equal(t, 33, last.FinalScore)
}

func TestTimeDecay(t *testing.T) {
	engine := newTestScoringEngine(new(MockLeadRepository), new(MockEventRepository), new(MockScoreHistoryRepository), new(MockTxManager))
	rules := entity.DefaultScoringRules()

	// Dentro da janela livre de decaimento
	assert.Equal(t, 100, engine.ApplyTimeDecay(100, fixedNow.Add(-71*time.Hour), rules, fixedNow))
	assert.Equal(t, 100, engine.ApplyTimeDecay(100, fixedNow.Add(-72*time.Hour), rules, fixedNow))

	// 10 dias: 0.95^10 = 0.5987...
	decayed := engine.ApplyTimeDecay(100, fixedNow.Add(-240*time.Hour), rules, fixedNow)
	assert.Equal(t, 60, decayed)

	// Decaimento nunca deixa o score negativo
	assert.GreaterOrEqual(t, engine.ApplyTimeDecay(1, fixedNow.Add(-700*time.Hour), rules, fixedNow), 0)
}

func TestRecentActivityBonusIsCapped(t *testing.T) {
	ctx := context.Background()

	// 12 eventos nas últimas 24h: bônus bruto seria 60, teto é 50
	var events []*entity.EngagementEvent
	for i := 0; i < 12; i++ {
		events = append(events, makeEvent(entity.EventChatbotInteraction, entity.ChannelChatbot,
			fixedNow.Add(-time.Duration(i+1)*time.Hour), entity.EventMetadata{}))
	}

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(testLead(entity.StageUser, 0), nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), new(MockTxManager))

	result, err := engine.CalculateLeadScore(ctx, "lead-123")
	assert.NoError(t, err)
	assert.Equal(t, 50, result.RecentActivityBonus)

	// 12 chatbot_interaction (~8 pts com repeat decay) + bônus 50 passa de 50
	assert.Equal(t, entity.StageEngagedLead, result.RecommendedStage)
}

func TestEventBaseScoreEmailMultiplier(t *testing.T) {
	engine := newTestScoringEngine(new(MockLeadRepository), new(MockEventRepository), new(MockScoreHistoryRepository), new(MockTxManager))
	rules := entity.DefaultScoringRules()

	viaEmail := makeEvent(entity.EventEmailOpen, entity.ChannelEmail, fixedNow, entity.EventMetadata{})
	viaProduct := makeEvent(entity.EventEmailOpen, entity.ChannelProduct, fixedNow, entity.EventMetadata{})

	assert.Equal(t, 6, engine.EventBaseScore(viaEmail, rules))   // 5 * 1.2
	assert.Equal(t, 5, engine.EventBaseScore(viaProduct, rules)) // canal neutro
}

func TestEventBaseScoreUnknownTypeFallsBackToStoredImpact(t *testing.T) {
	engine := newTestScoringEngine(new(MockLeadRepository), new(MockEventRepository), new(MockScoreHistoryRepository), new(MockTxManager))

	rules := entity.DefaultScoringRules()
	delete(rules.BasePoints, entity.EventLogin)

	event := makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow, entity.EventMetadata{})
	event.ScoreImpact = 7

	assert.Equal(t, 7, engine.EventBaseScore(event, rules))

	event.ScoreImpact = 0
	assert.Equal(t, 0, engine.EventBaseScore(event, rules))
}

func TestRecommendedStage(t *testing.T) {
	engine := newTestScoringEngine(new(MockLeadRepository), new(MockEventRepository), new(MockScoreHistoryRepository), new(MockTxManager))
	rules := entity.DefaultScoringRules()

	assert.Equal(t, entity.StageUser, engine.RecommendedStage(0, rules))
	assert.Equal(t, entity.StageUser, engine.RecommendedStage(49, rules))
	assert.Equal(t, entity.StageEngagedLead, engine.RecommendedStage(50, rules))
	assert.Equal(t, entity.StageQualifiedLead, engine.RecommendedStage(150, rules))
	assert.Equal(t, entity.StageCustomer, engine.RecommendedStage(300, rules))
	assert.Equal(t, entity.StageCustomer, engine.RecommendedStage(9999, rules))
}

func TestRulesProviderFailureFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()

	mockRules := new(MockRulesProvider)
	mockRules.On("Get", mock.Anything, "prod-1").Return(entity.ScoringRules{}, assert.AnError)

	engine := NewScoringEngine(new(MockLeadRepository), new(MockEventRepository), new(MockScoreHistoryRepository), mockRules, new(MockTxManager), NewLeadLocker())
	engine.Now = func() time.Time { return fixedNow }

	rules := engine.RulesFor(ctx, "prod-1")

	// Degradação silenciosa: nunca erro, sempre as regras default
	assert.Equal(t, entity.DefaultScoringRules().BasePoints, rules.BasePoints)
}

func TestUpdateLeadScorePersistsChangeAtomically(t *testing.T) {
	ctx := context.Background()

	events := []*entity.EngagementEvent{
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-48*time.Hour), entity.EventMetadata{}),
	}

	lead := testLead(entity.StageUser, 0)

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockHistory := new(MockScoreHistoryRepository)
	mockTx := new(MockTxManager)

	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(lead, nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)
	mockTx.On("RunAtomic", mock.Anything).Return(nil)
	mockLeads.On("Save", mock.Anything, lead).Return(nil)
	mockHistory.On("Append", mock.Anything, mock.MatchedBy(func(h *entity.ScoreHistory) bool {
		return h.LeadID == "lead-123" && h.OldScore == 0 && h.NewScore == 10 && h.Reason == "test"
	})).Return(nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, mockHistory, mockTx)

	result, err := engine.UpdateLeadScore(ctx, "lead-123", "test")

	assert.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 0, result.OldScore)
	assert.Equal(t, 10, result.NewScore)
	assert.Equal(t, 10, lead.EngagementScore)
	mockLeads.AssertCalled(t, "Save", mock.Anything, lead)
	mockHistory.AssertExpectations(t)
}

func TestUpdateLeadScoreNoOpWhenUnchanged(t *testing.T) {
	ctx := context.Background()

	events := []*entity.EngagementEvent{
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-48*time.Hour), entity.EventMetadata{}),
	}

	lead := testLead(entity.StageUser, 10) // Score já é 10

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockHistory := new(MockScoreHistoryRepository)
	mockTx := new(MockTxManager)

	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(lead, nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)

	engine := newTestScoringEngine(mockLeads, mockEvents, mockHistory, mockTx)

	result, err := engine.UpdateLeadScore(ctx, "lead-123", "test")

	assert.NoError(t, err)
	assert.False(t, result.Changed)
	mockLeads.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	mockHistory.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	mockTx.AssertNotCalled(t, "RunAtomic", mock.Anything)
}

func TestUpdateLeadScoreRollsBackOnPersistenceFailure(t *testing.T) {
	ctx := context.Background()

	events := []*entity.EngagementEvent{
		makeEvent(entity.EventLogin, entity.ChannelProduct, fixedNow.Add(-48*time.Hour), entity.EventMetadata{}),
	}

	lead := testLead(entity.StageUser, 0)

	mockLeads := new(MockLeadRepository)
	mockEvents := new(MockEventRepository)
	mockTx := new(MockTxManager)

	mockLeads.On("FindByID", mock.Anything, "lead-123").Return(lead, nil)
	mockEvents.On("ListByLead", mock.Anything, "lead-123", mock.Anything).Return(events, nil)
	mockTx.On("RunAtomic", mock.Anything).Return(assert.AnError)

	engine := newTestScoringEngine(mockLeads, mockEvents, new(MockScoreHistoryRepository), mockTx)

	_, err := engine.UpdateLeadScore(ctx, "lead-123", "test")

	assert.Error(t, err)
	assert.True(t, IsTechnicalError(err))
	assert.Equal(t, 0, lead.EngagementScore) // Estado anterior preservado
}
