package worker

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

// ScoreRefreshWorker recalcula periodicamente o score gravado dos leads cujo
// último recalculo ficou velho. O decaimento temporal é aplicado na avaliação,
// então sem refresh o score gravado de um lead parado nunca cairia.
type ScoreRefreshWorker struct {
	db           *sql.DB
	scoring      *usecase.ScoringEngine
	staleAfter   time.Duration
	tickInterval time.Duration
	batchSize    int
}

func NewScoreRefreshWorker(db *sql.DB, scoring *usecase.ScoringEngine) *ScoreRefreshWorker {
	return &ScoreRefreshWorker{
		db:           db,
		scoring:      scoring,
		staleAfter:   6 * time.Hour,
		tickInterval: 30 * time.Minute,
		batchSize:    100,
	}
}

func (w *ScoreRefreshWorker) Start(ctx context.Context) {
	log.Println("🕒 Score Refresh Worker iniciado (6h stale window)")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.refreshStaleScores(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Score Refresh Worker encerrado")
			return
		case <-ticker.C:
			w.refreshStaleScores(ctx)
		}
	}
}

func (w *ScoreRefreshWorker) refreshStaleScores(ctx context.Context) {
	// Leads com score > 0 e sem recalculo recente. Customer fica de fora:
	// estágio terminal, o score não move mais nada.
	query := `
		SELECT id
		FROM leads
		WHERE engagement_score > 0
		  AND stage <> 'Customer'
		  AND updated_at < NOW() - $1::interval
		ORDER BY updated_at ASC
		LIMIT $2
	`

	rows, err := w.db.QueryContext(ctx, query, w.staleAfter.String(), w.batchSize)
	if err != nil {
		log.Printf("❌ Erro ao buscar leads com score velho: %v", err)
		return
	}
	defer rows.Close()

	var leadIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			log.Printf("⚠️ Erro ao escanear lead: %v", err)
			continue
		}
		leadIDs = append(leadIDs, id)
	}

	refreshed := 0
	for _, leadID := range leadIDs {
		result, err := w.scoring.UpdateLeadScore(ctx, leadID, "scheduled_refresh")
		if err != nil {
			log.Printf("⚠️ Refresh falhou para lead %s: %v", leadID, err)
			continue
		}
		if result.Changed {
			refreshed++
		}
	}

	if refreshed > 0 {
		log.Printf("✅ %d score(s) atualizados pelo refresh", refreshed)
	}
}
