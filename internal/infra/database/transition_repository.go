package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/xavierca1/ligue-engagement/internal/entity"
)

type TransitionRepository struct {
	DB *sql.DB
}

func NewTransitionRepository(db *sql.DB) *TransitionRepository {
	return &TransitionRepository{DB: db}
}

// Append grava o registro de auditoria. A tabela é append-only: não existe
// UPDATE nem DELETE neste repositório.
func (r *TransitionRepository) Append(ctx context.Context, record *entity.StageTransition) error {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stage_transitions (id, lead_id, from_stage, to_stage, reason, metadata, forced, transitioned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = executorFrom(ctx, r.DB).ExecContext(ctx, query,
		record.ID,
		record.LeadID,
		string(record.FromStage),
		string(record.ToStage),
		record.Reason,
		metadata,
		record.Forced,
		record.TransitionedAt,
	)
	return err
}

// ListByLead: mais recente primeiro.
func (r *TransitionRepository) ListByLead(ctx context.Context, leadID string) ([]*entity.StageTransition, error) {
	query := `
		SELECT id, lead_id, from_stage, to_stage, reason, metadata, forced, transitioned_at
		FROM stage_transitions
		WHERE lead_id = $1
		ORDER BY transitioned_at DESC
	`

	rows, err := executorFrom(ctx, r.DB).QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*entity.StageTransition
	for rows.Next() {
		record := &entity.StageTransition{}
		var fromStage, toStage string
		var metadata []byte

		if err := rows.Scan(
			&record.ID,
			&record.LeadID,
			&fromStage,
			&toStage,
			&record.Reason,
			&metadata,
			&record.Forced,
			&record.TransitionedAt,
		); err != nil {
			return nil, err
		}

		record.FromStage = entity.Stage(fromStage)
		record.ToStage = entity.Stage(toStage)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
				return nil, err
			}
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
