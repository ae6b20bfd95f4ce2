package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type ScoreHistoryRepository struct {
	DB *sql.DB
}

func NewScoreHistoryRepository(db *sql.DB) *ScoreHistoryRepository {
	return &ScoreHistoryRepository{DB: db}
}

func (r *ScoreHistoryRepository) Append(ctx context.Context, record *entity.ScoreHistory) error {
	query := `
		INSERT INTO score_history (id, lead_id, old_score, new_score, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := executorFrom(ctx, r.DB).ExecContext(ctx, query,
		record.ID,
		record.LeadID,
		record.OldScore,
		record.NewScore,
		record.Reason,
		record.CreatedAt,
	)
	return err
}
